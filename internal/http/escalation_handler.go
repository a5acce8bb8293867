// README: Ops handlers for the escalation queue.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"banquet/internal/modules/escalation"
	"banquet/internal/types"
)

type EscalationHandler struct {
	queue *escalation.PgQueue
}

func NewEscalationHandler(q *escalation.PgQueue) *EscalationHandler {
	return &EscalationHandler{queue: q}
}

func (h *EscalationHandler) ListOpen(c *gin.Context) {
	items, err := h.queue.ListOpen(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, it := range items {
		out = append(out, gin.H{
			"id":         it.ID,
			"booking_id": it.BookingID,
			"reason":     it.Reason,
			"created_at": it.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"escalations": out})
}

func (h *EscalationHandler) Resolve(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing escalation id")
		return
	}
	if err := h.queue.Resolve(c.Request.Context(), types.ID(id)); err != nil {
		if errors.Is(err, escalation.ErrNotFound) {
			writeError(c, http.StatusNotFound, err.Error())
			return
		}
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": true})
}
