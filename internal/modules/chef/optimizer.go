// README: Chef optimizer scores and ranks candidates, then reserves the winner.
package chef

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"banquet/internal/config"
	"banquet/internal/types"
)

// ErrNoCandidate means no chef in the pool is free for the window. Not a
// terminal error: callers fall through to the suggestion engine.
var ErrNoCandidate = errors.New("no candidate chef for window")

// TravelEstimator is the travel-time oracle seen from the optimizer.
type TravelEstimator interface {
	Estimate(ctx context.Context, origin, destination types.Point, when time.Time) (time.Duration, error)
}

// AssignRequest carries everything the optimizer needs about one booking.
type AssignRequest struct {
	BookingID     types.ID
	Venue         types.Point
	Window        Window
	Guests        int
	PreferredChef types.ID
}

// Assignment is the optimizer's committed decision: the chosen chef already
// holds a calendar reservation for the window.
type Assignment struct {
	Chef       Chef
	Score      float64
	TravelTime time.Duration
}

type scoredChef struct {
	chef   Chef
	score  float64
	travel time.Duration
}

type Optimizer struct {
	travel   TravelEstimator
	calendar *Calendar
	cfg      config.OptimizerConfig
}

func NewOptimizer(travel TravelEstimator, calendar *Calendar, cfg config.OptimizerConfig) *Optimizer {
	return &Optimizer{travel: travel, calendar: calendar, cfg: cfg}
}

// Assign picks the best free chef for the booking and reserves the window.
// All travel estimates are fetched before any chef lock is touched. Losing the
// reservation race excludes the loser and retries against the reduced pool, up
// to the configured bound.
func (o *Optimizer) Assign(ctx context.Context, req AssignRequest, pool []Chef) (Assignment, error) {
	excluded := make(map[types.ID]bool)

	for attempt := 0; ; attempt++ {
		ranked, err := o.rankPool(ctx, req, pool, excluded)
		if err != nil {
			return Assignment{}, err
		}
		if len(ranked) == 0 {
			return Assignment{}, ErrNoCandidate
		}

		best := ranked[0]
		err = o.calendar.Reserve(best.chef.ID, req.BookingID, req.Window, req.Venue)
		if err == nil {
			return Assignment{Chef: best.chef, Score: best.score, TravelTime: best.travel}, nil
		}
		if !errors.Is(err, ErrReservationConflict) {
			return Assignment{}, err
		}
		if attempt >= o.cfg.ReserveRetries {
			return Assignment{}, fmt.Errorf("reservation retries exhausted: %w", ErrReservationConflict)
		}
		excluded[best.chef.ID] = true
	}
}

// rankPool filters the pool to free chefs and scores them. Deterministic for
// identical inputs: no randomness anywhere in the chain.
func (o *Optimizer) rankPool(ctx context.Context, req AssignRequest, pool []Chef, excluded map[types.ID]bool) ([]scoredChef, error) {
	var free []Chef
	for _, ch := range pool {
		if excluded[ch.ID] {
			continue
		}
		if !o.calendar.IsFree(ch.ID, req.Window) {
			continue
		}
		free = append(free, ch)
	}
	if len(free) == 0 {
		return nil, nil
	}

	dayStart := time.Date(
		req.Window.Start.Year(), req.Window.Start.Month(), req.Window.Start.Day(),
		0, 0, 0, 0, req.Window.Start.Location(),
	)
	dayEnd := dayStart.Add(24 * time.Hour)

	travels := make([]time.Duration, len(free))
	loads := make([]int, len(free))
	for i, ch := range free {
		origin := ch.Base
		if prior, ok := o.calendar.PriorCommitment(ch.ID, req.Window.Start); ok {
			origin = prior.Venue
		}
		d, err := o.travel.Estimate(ctx, origin, req.Venue, req.Window.Start)
		if err != nil {
			return nil, err
		}
		travels[i] = d
		// Stored workload plus reservations taken since it was last refreshed.
		loads[i] = ch.Workload + o.calendar.CommitmentCount(ch.ID, dayStart, dayEnd)
	}

	minTravel := travels[0]
	maxLoad := 0
	for i := range free {
		if travels[i] < minTravel {
			minTravel = travels[i]
		}
		if loads[i] > maxLoad {
			maxLoad = loads[i]
		}
	}

	scored := make([]scoredChef, len(free))
	for i, ch := range free {
		base := o.cfg.TravelWeight*travelScore(travels[i], minTravel) +
			o.cfg.SkillWeight*skillScore(ch, req.Guests) +
			o.cfg.WorkloadWeight*workloadScore(loads[i], maxLoad) +
			o.cfg.RatingWeight*ratingScore(ch.Rating)
		scored[i] = scoredChef{chef: ch, score: base * 100, travel: travels[i]}
	}

	o.rank(scored, req.PreferredChef)
	return scored, nil
}

// rank applies the preference bonus and sorts by total score, tie-breaking on
// lowest travel time, highest rating, lowest workload, then chef ID for a
// stable, reproducible order.
func (o *Optimizer) rank(scored []scoredChef, preferred types.ID) {
	if preferred != "" {
		for i := range scored {
			if scored[i].chef.ID == preferred {
				scored[i].score += o.cfg.PreferenceBonus
			}
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.travel != b.travel {
			return a.travel < b.travel
		}
		if a.chef.Rating != b.chef.Rating {
			return a.chef.Rating > b.chef.Rating
		}
		if a.chef.Workload != b.chef.Workload {
			return a.chef.Workload < b.chef.Workload
		}
		return a.chef.ID < b.chef.ID
	})
}

// travelScore normalizes across the candidate set: the fastest chef scores 1.
func travelScore(t, min time.Duration) float64 {
	if t <= 0 {
		return 1
	}
	return float64(min) / float64(t)
}

// skillScore is 1 inside the chef's supported guest range and decays linearly
// outside it, hitting 0 ten guests out.
func skillScore(ch Chef, guests int) float64 {
	const tolerance = 10.0
	var outside float64
	switch {
	case guests < ch.MinGuests:
		outside = float64(ch.MinGuests - guests)
	case guests > ch.MaxGuests:
		outside = float64(guests - ch.MaxGuests)
	default:
		return 1
	}
	s := 1 - outside/tolerance
	if s < 0 {
		return 0
	}
	return s
}

// workloadScore favors chefs with fewer upcoming bookings.
func workloadScore(load, maxLoad int) float64 {
	if maxLoad == 0 {
		return 1
	}
	return 1 - float64(load)/float64(maxLoad)
}

func ratingScore(rating float64) float64 {
	s := rating / 5
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
