// README: HTTP helper utilities for JSON shapes and error mapping.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"banquet/internal/modules/booking"
	"banquet/internal/modules/chef"
	"banquet/internal/modules/geo"
	"banquet/internal/modules/negotiation"
	"banquet/internal/modules/suggest"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, geo.ErrGeocodeFailed):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, booking.ErrConflict), errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrNotCancellable):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeNegotiationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, negotiation.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, negotiation.ErrBadCandidate):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, negotiation.ErrClosed):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

type candidateJSON struct {
	Date           string  `json:"date"`
	AnchorMinutes  int     `json:"anchor_minutes"`
	Score          float64 `json:"score"`
	NeedsIncentive bool    `json:"needs_incentive"`
}

func candidatesJSON(cs []suggest.Candidate) []candidateJSON {
	out := make([]candidateJSON, 0, len(cs))
	for _, c := range cs {
		out = append(out, candidateJSON{
			Date:           c.Date.Format(dateLayout),
			AnchorMinutes:  c.AnchorMinutes,
			Score:          c.Score,
			NeedsIncentive: c.NeedsIncentive,
		})
	}
	return out
}

type chefJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func chefToJSON(ch *chef.Chef) *chefJSON {
	if ch == nil {
		return nil
	}
	return &chefJSON{ID: string(ch.ID), Name: ch.Name}
}

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}
