// README: Booking handlers for evaluate/get.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"banquet/internal/modules/booking"
	"banquet/internal/modules/chef"
	"banquet/internal/types"
)

type BookingHandler struct {
	booking *booking.Service
}

func NewBookingHandler(svc *booking.Service) *BookingHandler {
	return &BookingHandler{booking: svc}
}

type evaluateReq struct {
	CustomerID       string `json:"customer_id"`
	Address          string `json:"address"`
	Date             string `json:"date"`
	AnchorMinutes    int    `json:"anchor_minutes"`
	RequestedMinutes int    `json:"requested_minutes"`
	Guests           int    `json:"guests"`
	PreferredChef    string `json:"preferred_chef"`
}

type evaluateResp struct {
	BookingID          string          `json:"booking_id"`
	Serviceable        bool            `json:"serviceable"`
	RequiresEscalation bool            `json:"requires_escalation"`
	DurationMinutes    int             `json:"duration_minutes"`
	WithinPreferred    bool            `json:"within_preferred"`
	AssignedChef       *chefJSON       `json:"assigned_chef,omitempty"`
	Suggestions        []candidateJSON `json:"suggestions,omitempty"`
	NegotiationID      string          `json:"negotiation_id,omitempty"`
	Escalated          bool            `json:"escalated"`
}

func (h *BookingHandler) Evaluate(c *gin.Context) {
	var req evaluateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.CustomerID == "" || req.Address == "" || req.Date == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}

	out, err := h.booking.Evaluate(c.Request.Context(), booking.EvaluateRequest{
		CustomerID:       types.ID(req.CustomerID),
		Address:          req.Address,
		Date:             date,
		AnchorMinutes:    req.AnchorMinutes,
		RequestedMinutes: req.RequestedMinutes,
		Guests:           req.Guests,
		PreferredChef:    types.ID(req.PreferredChef),
	})
	// An exhausted search still produced an escalated booking worth reporting.
	if err != nil && !errors.Is(err, chef.ErrNoCandidate) {
		writeBookingError(c, err)
		return
	}

	c.JSON(http.StatusOK, evaluateResp{
		BookingID:          string(out.BookingID),
		Serviceable:        out.Serviceable,
		RequiresEscalation: out.RequiresEscalation,
		DurationMinutes:    minutes(out.Duration),
		WithinPreferred:    out.WithinPreferred,
		AssignedChef:       chefToJSON(out.AssignedChef),
		Suggestions:        candidatesJSON(out.Suggestions),
		NegotiationID:      string(out.NegotiationID),
		Escalated:          out.Escalated,
	})
}

func (h *BookingHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	b, err := h.booking.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeBookingError(c, err)
		return
	}

	resp := gin.H{
		"booking_id":       b.ID,
		"customer_id":      b.CustomerID,
		"status":           b.Status,
		"event_date":       b.EventDate.Format(dateLayout),
		"anchor_minutes":   b.AnchorMinutes,
		"offset_minutes":   b.OffsetMinutes,
		"guests":           b.Guests,
		"duration_minutes": minutes(b.Duration),
		"serviceable":      b.Serviceable,
	}
	if b.ChefID != nil {
		resp["chef_id"] = *b.ChefID
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing booking id")
		return
	}
	if err := h.booking.Cancel(c.Request.Context(), types.ID(id)); err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": id, "status": booking.StatusCancelled})
}
