// README: Negotiation handlers for respond/get.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"banquet/internal/modules/negotiation"
	"banquet/internal/types"
)

type NegotiationHandler struct {
	negotiation *negotiation.Service
}

func NewNegotiationHandler(svc *negotiation.Service) *NegotiationHandler {
	return &NegotiationHandler{negotiation: svc}
}

type respondReq struct {
	Action         string `json:"action"`
	CandidateIndex int    `json:"candidate_index"`
}

type respondResp struct {
	State            string          `json:"state"`
	AssignedChef     string          `json:"assigned_chef,omitempty"`
	NewNegotiationID string          `json:"new_negotiation_id,omitempty"`
	Candidates       []candidateJSON `json:"candidates,omitempty"`
	Escalated        bool            `json:"escalated"`
}

func (h *NegotiationHandler) Respond(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing negotiation id")
		return
	}
	var req respondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}

	var (
		res negotiation.Result
		err error
	)
	switch req.Action {
	case "accept":
		res, err = h.negotiation.Accept(c.Request.Context(), types.ID(id), req.CandidateIndex)
	case "reject":
		res, err = h.negotiation.Reject(c.Request.Context(), types.ID(id))
	default:
		writeError(c, http.StatusBadRequest, "action must be accept or reject")
		return
	}
	if err != nil {
		writeNegotiationError(c, err)
		return
	}

	c.JSON(http.StatusOK, respondResp{
		State:            string(res.State),
		AssignedChef:     string(res.AssignedChef),
		NewNegotiationID: string(res.NewNegotiationID),
		Candidates:       candidatesJSON(res.Candidates),
		Escalated:        res.Escalated,
	})
}

func (h *NegotiationHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing negotiation id")
		return
	}
	r, err := h.negotiation.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeNegotiationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"negotiation_id": r.ID,
		"booking_id":     r.BookingID,
		"state":          r.State,
		"candidates":     candidatesJSON(r.Candidates),
		"incentive_pct":  r.IncentivePct,
		"attempt":        r.Attempt,
		"deadline":       r.Deadline,
	})
}
