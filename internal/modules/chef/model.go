// README: Chef aggregate and time-window definitions.
package chef

import (
	"time"

	"banquet/internal/types"
)

// Chef is a worker owned by the scheduling domain. Bookings reference chefs by
// ID, never duplicate them.
type Chef struct {
	ID        types.ID
	Name      string
	Base      types.Point
	MinGuests int
	MaxGuests int
	// Rating is the chef's historical rating on a 0-5 scale.
	Rating float64
	// Workload counts bookings assigned in the upcoming period.
	Workload int
}

// Window is a half-open booking time window [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Commitment is one reserved window on a chef's calendar.
type Commitment struct {
	BookingID types.ID
	Window    Window
	Venue     types.Point
}
