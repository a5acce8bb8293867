// README: Daily slot anchors, event-duration rule, and adjustment validation.
package slot

import (
	"errors"
	"time"

	"banquet/internal/config"
)

var (
	// ErrAdjustmentRejected means the requested time is farther from its
	// anchor than the hard maximum window allows.
	ErrAdjustmentRejected = errors.New("slot adjustment exceeds maximum window")
	// ErrUnknownAnchor means the anchor is not one of the configured daily
	// anchors.
	ErrUnknownAnchor = errors.New("unknown slot anchor")
)

// Validation classifies a requested time against its anchor. WithinPreferred
// false with a nil error signals a nudge-sized move: usable, but worth an
// incentive-free negotiation rather than silent acceptance.
type Validation struct {
	EffectiveMinutes int
	OffsetMinutes    int
	WithinPreferred  bool
	WithinMax        bool
}

// Model holds the configured anchors and duration rule. All times are minutes
// since midnight; a booking's effective time is anchor + offset.
type Model struct {
	cfg config.SlotConfig
}

func NewModel(cfg config.SlotConfig) *Model {
	return &Model{cfg: cfg}
}

// Anchors returns the configured daily anchors in minutes since midnight.
func (m *Model) Anchors() []int {
	out := make([]int, len(m.cfg.AnchorMinutes))
	copy(out, m.cfg.AnchorMinutes)
	return out
}

// DurationFor computes the event duration for a guest count:
// min(maxDuration, baseDuration + guests*perGuestDuration).
func (m *Model) DurationFor(guests int) time.Duration {
	if guests < 0 {
		guests = 0
	}
	d := m.cfg.BaseDuration + time.Duration(guests)*m.cfg.PerGuestDuration
	if d > m.cfg.MaxDuration {
		return m.cfg.MaxDuration
	}
	return d
}

// NearestAnchor returns the configured anchor closest to the given time of
// day. Anchors sit far enough apart that a valid effective time can never
// straddle two of them.
func (m *Model) NearestAnchor(minutes int) int {
	best := m.cfg.AnchorMinutes[0]
	bestDist := abs(minutes - best)
	for _, a := range m.cfg.AnchorMinutes[1:] {
		if d := abs(minutes - a); d < bestDist {
			best, bestDist = a, d
		}
	}
	return best
}

// ValidateAdjustment checks the requested time of day against the given
// anchor. The classification is symmetric in the sign of the offset.
func (m *Model) ValidateAdjustment(anchorMinutes, requestedMinutes int) (Validation, error) {
	if !m.knownAnchor(anchorMinutes) {
		return Validation{}, ErrUnknownAnchor
	}

	offset := requestedMinutes - anchorMinutes
	maxMin := int(m.cfg.MaxWindow / time.Minute)
	prefMin := int(m.cfg.PreferredWindow / time.Minute)

	if abs(offset) > maxMin {
		return Validation{OffsetMinutes: offset}, ErrAdjustmentRejected
	}

	return Validation{
		EffectiveMinutes: requestedMinutes,
		OffsetMinutes:    offset,
		WithinPreferred:  abs(offset) <= prefMin,
		WithinMax:        true,
	}, nil
}

// Window materialises the effective booking window on a calendar date.
func (m *Model) Window(date time.Time, anchorMinutes, offsetMinutes, guests int) (time.Time, time.Time) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	start := day.Add(time.Duration(anchorMinutes+offsetMinutes) * time.Minute)
	return start, start.Add(m.DurationFor(guests))
}

func (m *Model) knownAnchor(minutes int) bool {
	for _, a := range m.cfg.AnchorMinutes {
		if a == minutes {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
