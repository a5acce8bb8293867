// README: Negotiation request aggregate and state definitions.
package negotiation

import (
	"time"

	"banquet/internal/modules/suggest"
	"banquet/internal/types"
)

type State string

const (
	StateCreated  State = "created"
	StatePending  State = "pending"
	StateAccepted State = "accepted"
	StateRejected State = "rejected"
	StateExpired  State = "expired"
)

// Request is one offer cycle. Created transitions to Pending once the offer
// is dispatched; exactly one transition ever leaves Pending.
type Request struct {
	ID           types.ID
	BookingID    types.ID
	CustomerID   types.ID
	Candidates   []suggest.Candidate
	IncentivePct float64
	// Attempt counts restarts after an accepted candidate turned out taken.
	Attempt      int
	State        State
	StateVersion int
	CreatedAt    time.Time
	Deadline     time.Time
}

// AllowedTransitions represents the offer state flow as code.
var AllowedTransitions = map[State][]State{
	// Created moves to rejected only when the offer could not be dispatched.
	StateCreated: {StatePending, StateRejected},
	StatePending: {StateAccepted, StateRejected, StateExpired},
}

func CanTransition(from, to State) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}
