// README: Booking aggregate and status definitions.
package booking

import (
	"time"

	"banquet/internal/types"
)

type Status string

const (
	StatusNone        Status = "none"
	StatusRequested   Status = "requested"
	StatusAssigned    Status = "assigned"
	StatusNegotiating Status = "negotiating"
	StatusEscalated   Status = "escalated"
	StatusRejected    Status = "rejected"
	StatusCancelled   Status = "cancelled"
)

// Booking is the scheduling-relevant subset of a catering booking.
type Booking struct {
	ID            types.ID
	CustomerID    types.ID
	Address       string
	Venue         types.Point
	EventDate     time.Time
	AnchorMinutes int
	OffsetMinutes int
	Guests        int
	Duration      time.Duration
	ChefID        *types.ID
	PreferredChef types.ID
	Serviceable   bool
	Escalation    bool
	Status        Status
	StatusVersion int
	CreatedAt     time.Time
}

// AllowedTransitions represents the booking state flow as code.
var AllowedTransitions = map[Status][]Status{
	StatusRequested:   {StatusAssigned, StatusNegotiating, StatusEscalated, StatusRejected, StatusCancelled},
	StatusNegotiating: {StatusAssigned, StatusNegotiating, StatusEscalated, StatusRejected, StatusCancelled},
	StatusAssigned:    {StatusCancelled},
}

func CanTransition(from, to Status) bool {
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
