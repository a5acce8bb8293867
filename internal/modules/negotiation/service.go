// README: Negotiation coordinator drives the offer/accept/expire workflow.
package negotiation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"banquet/internal/config"
	"banquet/internal/modules/booking"
	"banquet/internal/modules/suggest"
	"banquet/internal/types"
)

var (
	// ErrClosed means the request already left the pending state; a late
	// response after the sweep lands here.
	ErrClosed = errors.New("negotiation no longer pending")
	// ErrBadCandidate means the response referenced a candidate the offer
	// never contained.
	ErrBadCandidate = errors.New("candidate not in offer")
)

// Store is the persistence seen by the coordinator.
type Store interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id types.ID) (*Request, error)
	UpdateState(ctx context.Context, id types.ID, from, to State, version int) (bool, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]*Request, error)
}

// Messenger is the external offer-delivery collaborator.
type Messenger interface {
	SendOffer(ctx context.Context, customerID types.ID, candidates []suggest.Candidate, incentivePct float64, deadline time.Time) error
	NotifyEscalated(ctx context.Context, customerID types.ID, bookingID types.ID) error
}

// BookingGateway is the booking service seen from the coordinator.
type BookingGateway interface {
	RespondedCandidate(ctx context.Context, bookingID types.ID, date time.Time, anchorMinutes int) (types.ID, error)
	AlternativesFor(ctx context.Context, bookingID types.ID) ([]suggest.Candidate, error)
	EscalateBooking(ctx context.Context, bookingID types.ID, reason string) error
}

// Result reports how a response was resolved: a committed chef, a restarted
// negotiation with fresh candidates, or an escalation.
type Result struct {
	State            State
	AssignedChef     types.ID
	NewNegotiationID types.ID
	Candidates       []suggest.Candidate
	Escalated        bool
}

type Service struct {
	store     Store
	messenger Messenger
	booking   BookingGateway
	cfg       config.NegotiationConfig
}

func NewService(store Store, messenger Messenger, gateway BookingGateway, cfg config.NegotiationConfig) *Service {
	return &Service{store: store, messenger: messenger, booking: gateway, cfg: cfg}
}

// Open creates an offer for the booking and dispatches it. Implements
// booking.NegotiationOpener.
func (s *Service) Open(ctx context.Context, b *booking.Booking, candidates []suggest.Candidate) (types.ID, error) {
	return s.open(ctx, b.ID, b.CustomerID, candidates, 0)
}

func (s *Service) open(ctx context.Context, bookingID, customerID types.ID, candidates []suggest.Candidate, attempt int) (types.ID, error) {
	incentive := 0.0
	for _, c := range candidates {
		if c.NeedsIncentive {
			incentive = s.cfg.IncentivePercent
			break
		}
	}

	now := time.Now()
	r := &Request{
		ID:           types.ID(uuid.NewString()),
		BookingID:    bookingID,
		CustomerID:   customerID,
		Candidates:   candidates,
		IncentivePct: incentive,
		Attempt:      attempt,
		State:        StateCreated,
		CreatedAt:    now,
		Deadline:     now.Add(s.cfg.Deadline),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return "", err
	}

	if err := s.messenger.SendOffer(ctx, customerID, candidates, incentive, r.Deadline); err != nil {
		// An undispatched offer can never be answered. Close it and hand the
		// booking to the human queue rather than dropping it.
		if _, uerr := s.store.UpdateState(ctx, r.ID, StateCreated, StateRejected, r.StateVersion); uerr != nil {
			log.Printf("close undispatched negotiation %s: %v", r.ID, uerr)
		}
		if eerr := s.booking.EscalateBooking(ctx, bookingID, "offer dispatch failed"); eerr != nil {
			log.Printf("escalate booking %s: %v", bookingID, eerr)
		}
		return "", err
	}
	if _, err := s.store.UpdateState(ctx, r.ID, StateCreated, StatePending, r.StateVersion); err != nil {
		return "", err
	}
	return r.ID, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Request, error) {
	return s.store.Get(ctx, id)
}

// Accept applies the customer's chosen candidate. The slot is re-validated:
// it may have been taken between dispatch and response, in which case the
// coordinator regenerates suggestions and restarts (bounded), then escalates.
// Acceptance never commits an invalid assignment.
func (s *Service) Accept(ctx context.Context, id types.ID, candidateIdx int) (Result, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if candidateIdx < 0 || candidateIdx >= len(r.Candidates) {
		return Result{}, ErrBadCandidate
	}

	ok, err := s.store.UpdateState(ctx, id, StatePending, StateAccepted, r.StateVersion)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		// The sweep or another responder won the transition.
		return Result{}, ErrClosed
	}

	chosen := r.Candidates[candidateIdx]
	chefID, err := s.booking.RespondedCandidate(ctx, r.BookingID, chosen.Date, chosen.AnchorMinutes)
	if err == nil {
		return Result{State: StateAccepted, AssignedChef: chefID}, nil
	}
	if !errors.Is(err, booking.ErrSlotTaken) {
		return Result{}, err
	}

	return s.restartOrEscalate(ctx, r)
}

// Reject closes the offer and escalates immediately.
func (s *Service) Reject(ctx context.Context, id types.ID) (Result, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	ok, err := s.store.UpdateState(ctx, id, StatePending, StateRejected, r.StateVersion)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, ErrClosed
	}
	if err := s.booking.EscalateBooking(ctx, r.BookingID, "customer rejected all candidates"); err != nil {
		return Result{}, err
	}
	return Result{State: StateRejected, Escalated: true}, nil
}

// SweepExpired expires every pending request past its deadline, escalates the
// booking, and notifies the customer. A response racing the sweep is settled
// by the state guard: whoever transitions first wins.
func (s *Service) SweepExpired(ctx context.Context) error {
	expired, err := s.store.ListExpiredPending(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, r := range expired {
		ok, err := s.store.UpdateState(ctx, r.ID, StatePending, StateExpired, r.StateVersion)
		if err != nil {
			log.Printf("expire negotiation %s: %v", r.ID, err)
			continue
		}
		if !ok {
			continue
		}
		if err := s.booking.EscalateBooking(ctx, r.BookingID, "negotiation expired without response"); err != nil {
			log.Printf("escalate booking %s: %v", r.BookingID, err)
		}
		if err := s.messenger.NotifyEscalated(ctx, r.CustomerID, r.BookingID); err != nil {
			log.Printf("notify customer %s: %v", r.CustomerID, err)
		}
	}
	return nil
}

// RunExpirySweeper drives SweepExpired on a fixed interval until ctx is done.
func (s *Service) RunExpirySweeper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SweepExpired(ctx); err != nil {
				log.Printf("negotiation sweep: %v", err)
			}
		}
	}
}

func (s *Service) restartOrEscalate(ctx context.Context, r *Request) (Result, error) {
	if r.Attempt < s.cfg.RestartRetries {
		candidates, err := s.booking.AlternativesFor(ctx, r.BookingID)
		if err != nil {
			return Result{}, err
		}
		if len(candidates) > 0 {
			newID, err := s.open(ctx, r.BookingID, r.CustomerID, candidates, r.Attempt+1)
			if err != nil {
				return Result{}, err
			}
			return Result{State: StateAccepted, NewNegotiationID: newID, Candidates: candidates}, nil
		}
	}

	if err := s.booking.EscalateBooking(ctx, r.BookingID, "accepted slot taken, retries exhausted"); err != nil {
		return Result{}, err
	}
	if err := s.messenger.NotifyEscalated(ctx, r.CustomerID, r.BookingID); err != nil {
		log.Printf("notify customer %s: %v", r.CustomerID, err)
	}
	return Result{State: StateAccepted, Escalated: true}, nil
}
