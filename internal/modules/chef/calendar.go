// README: In-process calendar arena; the serialized reservation path per chef.
package chef

import (
	"errors"
	"sync"
	"time"

	"banquet/internal/types"
)

var (
	// ErrReservationConflict means another booking already holds an
	// overlapping window. Transient: callers retry against the reduced pool.
	ErrReservationConflict = errors.New("chef already reserved for an overlapping window")
	// ErrUnknownChef means the chef has no calendar record.
	ErrUnknownChef = errors.New("unknown chef")
)

// Calendar is an arena of chef records addressed by ID. Every reservation
// mutation goes through the per-chef lock; the lock is held only for the
// overlap check and the write, never across external calls.
type Calendar struct {
	mu      sync.RWMutex
	records map[types.ID]*record
}

type record struct {
	mu          sync.Mutex
	commitments []Commitment
}

func NewCalendar() *Calendar {
	return &Calendar{records: make(map[types.ID]*record)}
}

// Register creates an empty calendar record for the chef if none exists.
func (c *Calendar) Register(id types.ID) {
	c.mu.Lock()
	if _, ok := c.records[id]; !ok {
		c.records[id] = &record{}
	}
	c.mu.Unlock()
}

func (c *Calendar) get(id types.ID) (*record, bool) {
	c.mu.RLock()
	r, ok := c.records[id]
	c.mu.RUnlock()
	return r, ok
}

// Reserve atomically checks the window against existing commitments and
// writes the new one. Exactly one of two concurrent overlapping reservations
// succeeds.
func (c *Calendar) Reserve(id types.ID, bookingID types.ID, w Window, venue types.Point) error {
	r, ok := c.get(id)
	if !ok {
		return ErrUnknownChef
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cm := range r.commitments {
		if cm.Window.Overlaps(w) {
			return ErrReservationConflict
		}
	}
	r.commitments = append(r.commitments, Commitment{BookingID: bookingID, Window: w, Venue: venue})
	return nil
}

// Release drops the commitment for the booking, if any. Used to compensate a
// reservation that was superseded downstream.
func (c *Calendar) Release(id types.ID, bookingID types.ID) {
	r, ok := c.get(id)
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cm := range r.commitments {
		if cm.BookingID == bookingID {
			r.commitments = append(r.commitments[:i], r.commitments[i+1:]...)
			return
		}
	}
}

// IsFree reports whether the chef has no commitment overlapping the window.
func (c *Calendar) IsFree(id types.ID, w Window) bool {
	r, ok := c.get(id)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cm := range r.commitments {
		if cm.Window.Overlaps(w) {
			return false
		}
	}
	return true
}

// PriorCommitment returns the commitment that ends latest at or before the
// given time, used as the travel origin for the next booking.
func (c *Calendar) PriorCommitment(id types.ID, before time.Time) (Commitment, bool) {
	r, ok := c.get(id)
	if !ok {
		return Commitment{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var best Commitment
	found := false
	for _, cm := range r.commitments {
		if cm.Window.End.After(before) {
			continue
		}
		if !found || cm.Window.End.After(best.Window.End) {
			best, found = cm, true
		}
	}
	return best, found
}

// CommitmentCount returns how many commitments fall inside [from, to).
func (c *Calendar) CommitmentCount(id types.ID, from, to time.Time) int {
	r, ok := c.get(id)
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, cm := range r.commitments {
		if cm.Window.Overlaps(Window{Start: from, End: to}) {
			n++
		}
	}
	return n
}
