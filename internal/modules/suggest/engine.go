// README: Suggestion engine searches nearby slots and days when a request cannot be met.
package suggest

import (
	"context"
	"sort"
	"time"

	"banquet/internal/config"
	"banquet/internal/modules/slot"
)

// Reason records why the original request could not be satisfied.
type Reason string

const (
	ReasonNoChef          Reason = "no_chef_available"
	ReasonSlotRejected    Reason = "slot_rejected"
	ReasonTravelUnknown   Reason = "travel_estimate_unavailable"
	ReasonBeyondPreferred Reason = "beyond_preferred_window"
)

// Candidate is an alternative (slot, date) pair. Candidates are ephemeral;
// they live only for the request/response cycle.
type Candidate struct {
	Date           time.Time
	AnchorMinutes  int
	Score          float64
	NeedsIncentive bool
}

// Request describes the slot originally asked for.
type Request struct {
	Date          time.Time
	AnchorMinutes int
	Guests        int
}

// SlotChecker reports whether a (date, anchor) combination can be staffed.
// A checker error skips the candidate rather than failing the search.
type SlotChecker func(ctx context.Context, date time.Time, anchorMinutes int) (bool, error)

const (
	dayPenalty    = 20.0
	anchorPenalty = 5.0
	baseScore     = 100.0
)

type Engine struct {
	slots *slot.Model
	cfg   config.SuggestConfig
	pref  time.Duration
}

func NewEngine(slots *slot.Model, cfg config.SuggestConfig, preferredWindow time.Duration) *Engine {
	return &Engine{slots: slots, cfg: cfg, pref: preferredWindow}
}

// Suggest searches, in order: same-day alternate anchors, the same anchor on
// the following day, then the same anchor up to SearchDays out. Results are
// scored by proximity to the original request, truncated to TopK, ordered by
// descending score with ties broken by earliest date then smallest anchor
// offset.
func (e *Engine) Suggest(ctx context.Context, req Request, _ Reason, check SlotChecker) []Candidate {
	anchors := e.slots.Anchors()
	reqIdx := anchorIndex(anchors, req.AnchorMinutes)

	var out []Candidate

	// Same day, alternate anchors inside the adjustment search.
	for i, a := range anchors {
		if a == req.AnchorMinutes {
			continue
		}
		if c, ok := e.tryCandidate(ctx, req, req.Date, a, 0, absInt(i-reqIdx), check); ok {
			out = append(out, c)
		}
	}

	// Same anchor, following days.
	for day := 1; day <= e.cfg.SearchDays; day++ {
		date := req.Date.AddDate(0, 0, day)
		if c, ok := e.tryCandidate(ctx, req, date, req.AnchorMinutes, day, 0, check); ok {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		di := absInt(out[i].AnchorMinutes - req.AnchorMinutes)
		dj := absInt(out[j].AnchorMinutes - req.AnchorMinutes)
		return di < dj
	})

	if len(out) > e.cfg.TopK {
		out = out[:e.cfg.TopK]
	}
	return out
}

func (e *Engine) tryCandidate(ctx context.Context, req Request, date time.Time, anchor, daysAway, anchorSteps int, check SlotChecker) (Candidate, bool) {
	if check != nil {
		ok, err := check(ctx, date, anchor)
		if err != nil || !ok {
			return Candidate{}, false
		}
	}

	moved := time.Duration(absInt(anchor-req.AnchorMinutes)) * time.Minute
	return Candidate{
		Date:           date,
		AnchorMinutes:  anchor,
		Score:          baseScore - dayPenalty*float64(daysAway) - anchorPenalty*float64(anchorSteps),
		NeedsIncentive: daysAway > 0 || moved > e.pref,
	}, true
}

func anchorIndex(anchors []int, anchor int) int {
	for i, a := range anchors {
		if a == anchor {
			return i
		}
	}
	return 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
