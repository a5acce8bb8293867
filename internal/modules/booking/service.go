// README: Booking service drives the resolution chain: direct assign, suggestions, negotiation, escalation.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"banquet/internal/config"
	"banquet/internal/modules/chef"
	"banquet/internal/modules/geo"
	"banquet/internal/modules/slot"
	"banquet/internal/modules/suggest"
	"banquet/internal/modules/travel"
	"banquet/internal/types"
)

var (
	ErrBadRequest = errors.New("bad request")
	// ErrNotNegotiable means the booking is not in a state a negotiation
	// outcome can be applied to.
	ErrNotNegotiable = errors.New("booking not negotiating")
	// ErrSlotTaken means a previously offered candidate can no longer be
	// staffed; the negotiation must regenerate or escalate, never commit.
	ErrSlotTaken = errors.New("candidate slot no longer available")
	// ErrNotCancellable means the booking's state has no transition to
	// cancelled.
	ErrNotCancellable = errors.New("booking not cancellable")
)

// Store is the persistence seen by the service.
type Store interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	UpdateStatus(ctx context.Context, b *Booking, to Status, chefID *types.ID) (bool, error)
}

// ChefPool supplies candidate chefs.
type ChefPool interface {
	ListAll(ctx context.Context) ([]chef.Chef, error)
}

// Assigner is the chef optimizer.
type Assigner interface {
	Assign(ctx context.Context, req chef.AssignRequest, pool []chef.Chef) (chef.Assignment, error)
}

// Availability is the calendar arena seen by the service.
type Availability interface {
	IsFree(id types.ID, w chef.Window) bool
	Release(id types.ID, bookingID types.ID)
}

// Suggester produces ranked alternative slots.
type Suggester interface {
	Suggest(ctx context.Context, req suggest.Request, reason suggest.Reason, check suggest.SlotChecker) []suggest.Candidate
}

// NegotiationOpener starts the offer lifecycle for a booking.
type NegotiationOpener interface {
	Open(ctx context.Context, b *Booking, candidates []suggest.Candidate) (types.ID, error)
}

// Escalator is the human-queue collaborator.
type Escalator interface {
	EscalateToHuman(ctx context.Context, bookingID types.ID, reason string) error
}

// CommitmentStore persists granted reservations. Optional; the in-process
// calendar remains the concurrency gate either way.
type CommitmentStore interface {
	SaveCommitment(ctx context.Context, chefID types.ID, cm chef.Commitment) error
	DeleteCommitment(ctx context.Context, chefID, bookingID types.ID) error
}

type EvaluateRequest struct {
	CustomerID    types.ID
	Address       string
	Date          time.Time
	AnchorMinutes int
	// RequestedMinutes is the requested time of day; zero means exactly the
	// anchor.
	RequestedMinutes int
	Guests           int
	PreferredChef    types.ID
}

// Outcome carries exactly one resolution: an assigned chef, a ranked list of
// suggestions with a negotiation in flight, or an escalation.
type Outcome struct {
	BookingID          types.ID
	Serviceable        bool
	RequiresEscalation bool
	Duration           time.Duration
	WithinPreferred    bool
	AssignedChef       *chef.Chef
	Suggestions        []suggest.Candidate
	NegotiationID      types.ID
	Escalated          bool
}

type Service struct {
	store       Store
	resolver    *geo.Resolver
	slots       *slot.Model
	pool        ChefPool
	optimizer   Assigner
	calendar    Availability
	suggester   Suggester
	negotiator  NegotiationOpener
	escalator   Escalator
	commitments CommitmentStore
	bandPolicy  config.EscalationBandPolicy
}

func NewService(
	store Store,
	resolver *geo.Resolver,
	slots *slot.Model,
	pool ChefPool,
	optimizer Assigner,
	calendar Availability,
	suggester Suggester,
	escalator Escalator,
	commitments CommitmentStore,
	bandPolicy config.EscalationBandPolicy,
) *Service {
	return &Service{
		store:       store,
		resolver:    resolver,
		slots:       slots,
		pool:        pool,
		optimizer:   optimizer,
		calendar:    calendar,
		suggester:   suggester,
		escalator:   escalator,
		commitments: commitments,
		bandPolicy:  bandPolicy,
	}
}

// AttachNegotiator wires the negotiation coordinator after construction; the
// coordinator holds a reverse reference to this service.
func (s *Service) AttachNegotiator(n NegotiationOpener) {
	s.negotiator = n
}

// Evaluate answers a booking request: serviceability, duration, and either a
// chef, suggestions plus a negotiation, or an escalation. Only a failed
// geocode or a fully exhausted search surfaces as an error.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (Outcome, error) {
	if req.CustomerID == "" || req.Address == "" || req.Guests < 0 {
		return Outcome{}, ErrBadRequest
	}

	addr, err := s.resolver.Resolve(ctx, req.Address)
	if err != nil {
		return Outcome{}, err
	}

	area, err := s.resolver.CheckServiceArea(addr.Position)
	if err != nil {
		return Outcome{}, err
	}

	requested := req.RequestedMinutes
	if requested == 0 {
		requested = req.AnchorMinutes
	}
	anchor := req.AnchorMinutes
	if anchor == 0 {
		if requested == 0 {
			return Outcome{}, ErrBadRequest
		}
		anchor = s.slots.NearestAnchor(requested)
	}

	b := &Booking{
		ID:            types.ID(uuid.NewString()),
		CustomerID:    req.CustomerID,
		Address:       req.Address,
		Venue:         addr.Position,
		EventDate:     req.Date,
		AnchorMinutes: anchor,
		Guests:        req.Guests,
		Duration:      s.slots.DurationFor(req.Guests),
		PreferredChef: req.PreferredChef,
		Serviceable:   area.Serviceable,
		Escalation:    area.RequiresEscalation,
		Status:        StatusRequested,
		CreatedAt:     time.Now(),
	}

	out := Outcome{
		BookingID:          b.ID,
		Serviceable:        area.Serviceable,
		RequiresEscalation: area.RequiresEscalation,
		Duration:           b.Duration,
	}

	// Area failures precede all slot and chef logic.
	if area.RequiresEscalation {
		return s.escalate(ctx, b, out, "outside escalation radius")
	}
	if !area.Serviceable && s.bandPolicy != config.BandPolicyAuto {
		return s.escalate(ctx, b, out, "inside escalation band, manual policy")
	}

	v, err := s.slots.ValidateAdjustment(anchor, requested)
	if errors.Is(err, slot.ErrAdjustmentRejected) {
		b.OffsetMinutes = 0
		return s.resolveIndirect(ctx, b, out, suggest.ReasonSlotRejected)
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	b.OffsetMinutes = v.OffsetMinutes
	out.WithinPreferred = v.WithinPreferred

	// Beyond the preferred window the slot stays usable, but only as a
	// negotiated nudge. The requested slot itself leads the offer, incentive
	// free; it is never silently accepted.
	if !v.WithinPreferred {
		return s.resolveIndirect(ctx, b, out, suggest.ReasonBeyondPreferred)
	}

	assignment, err := s.tryAssign(ctx, b)
	switch {
	case err == nil:
		chefID := assignment.Chef.ID
		b.ChefID = &chefID
		b.Status = StatusAssigned
		if err := s.store.Create(ctx, b); err != nil {
			// The reservation belongs to a booking that was never persisted;
			// give the window back.
			s.calendar.Release(chefID, b.ID)
			return Outcome{}, err
		}
		s.persistCommitment(ctx, b, assignment.Chef.ID)
		out.AssignedChef = &assignment.Chef
		return out, nil
	case errors.Is(err, chef.ErrNoCandidate),
		errors.Is(err, chef.ErrReservationConflict),
		errors.Is(err, travel.ErrEstimateUnavailable):
		return s.resolveIndirect(ctx, b, out, reasonFor(err))
	default:
		return Outcome{}, err
	}
}

// RespondedCandidate re-validates an accepted negotiation candidate and, if
// the slot can still be staffed, commits it. Called back by the negotiation
// coordinator.
func (s *Service) RespondedCandidate(ctx context.Context, bookingID types.ID, date time.Time, anchorMinutes int) (types.ID, error) {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if b.Status != StatusNegotiating {
		return "", ErrNotNegotiable
	}

	// Accepting the originally requested slot (a nudge offer) keeps its
	// offset; any other candidate books exactly at the anchor.
	if !date.Equal(b.EventDate) || anchorMinutes != b.AnchorMinutes {
		b.OffsetMinutes = 0
	}
	b.EventDate = date
	b.AnchorMinutes = anchorMinutes

	assignment, err := s.tryAssign(ctx, b)
	if err != nil {
		// The candidate was valid when offered; it has been taken since.
		return "", fmt.Errorf("%w: %v", ErrSlotTaken, err)
	}

	chefID := assignment.Chef.ID
	ok, err := s.store.UpdateStatus(ctx, b, StatusAssigned, &chefID)
	if err != nil {
		return "", err
	}
	if !ok {
		// A concurrent transition won; give the reservation back.
		s.calendar.Release(chefID, b.ID)
		return "", ErrConflict
	}
	s.persistCommitment(ctx, b, chefID)
	return chefID, nil
}

// AlternativesFor regenerates suggestions for a negotiating booking.
func (s *Service) AlternativesFor(ctx context.Context, bookingID types.ID) ([]suggest.Candidate, error) {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	pool, err := s.pool.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.suggestFor(ctx, b, pool, suggest.ReasonNoChef), nil
}

// EscalateBooking moves the booking out of automation and hands it to the
// human queue. Called by the negotiation coordinator on reject and expiry.
func (s *Service) EscalateBooking(ctx context.Context, bookingID types.ID, reason string) error {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if CanTransition(b.Status, StatusEscalated) {
		if _, err := s.store.UpdateStatus(ctx, b, StatusEscalated, nil); err != nil {
			return err
		}
	}
	return s.escalator.EscalateToHuman(ctx, bookingID, reason)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Booking, error) {
	return s.store.Get(ctx, id)
}

// Cancel withdraws a booking and gives any reserved window back to the chef,
// in the calendar and in the persisted commitments.
func (s *Service) Cancel(ctx context.Context, id types.ID) error {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(b.Status, StatusCancelled) {
		return ErrNotCancellable
	}
	ok, err := s.store.UpdateStatus(ctx, b, StatusCancelled, b.ChefID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	if b.ChefID != nil {
		s.calendar.Release(*b.ChefID, b.ID)
		if s.commitments != nil {
			if err := s.commitments.DeleteCommitment(ctx, *b.ChefID, b.ID); err != nil {
				log.Printf("delete commitment for booking %s: %v", b.ID, err)
			}
		}
	}
	return nil
}

func (s *Service) tryAssign(ctx context.Context, b *Booking) (chef.Assignment, error) {
	pool, err := s.pool.ListAll(ctx)
	if err != nil {
		return chef.Assignment{}, err
	}
	start, end := s.slots.Window(b.EventDate, b.AnchorMinutes, b.OffsetMinutes, b.Guests)
	return s.optimizer.Assign(ctx, chef.AssignRequest{
		BookingID:     b.ID,
		Venue:         b.Venue,
		Window:        chef.Window{Start: start, End: end},
		Guests:        b.Guests,
		PreferredChef: b.PreferredChef,
	}, pool)
}

// resolveIndirect runs the suggestion engine and opens a negotiation. With no
// viable alternative at all, the booking escalates and the exhausted search
// surfaces as a hard failure.
func (s *Service) resolveIndirect(ctx context.Context, b *Booking, out Outcome, reason suggest.Reason) (Outcome, error) {
	pool, err := s.pool.ListAll(ctx)
	if err != nil {
		return Outcome{}, err
	}

	candidates := s.suggestFor(ctx, b, pool, reason)
	if reason == suggest.ReasonBeyondPreferred && s.slotStaffable(b, pool) {
		// The requested slot leads the offer: same day, same anchor, the
		// customer's own time, no incentive attached.
		requested := suggest.Candidate{
			Date:          b.EventDate,
			AnchorMinutes: b.AnchorMinutes,
			Score:         100,
		}
		candidates = append([]suggest.Candidate{requested}, candidates...)
	}
	if len(candidates) == 0 {
		out, _ = s.escalate(ctx, b, out, "no chef and no alternatives")
		return out, chef.ErrNoCandidate
	}

	b.Status = StatusNegotiating
	if err := s.store.Create(ctx, b); err != nil {
		return Outcome{}, err
	}
	negID, err := s.negotiator.Open(ctx, b, candidates)
	if err != nil {
		return Outcome{}, err
	}
	out.Suggestions = candidates
	out.NegotiationID = negID
	return out, nil
}

// slotStaffable reports whether any chef in the pool is free for the booking's
// own window, offset included.
func (s *Service) slotStaffable(b *Booking, pool []chef.Chef) bool {
	start, end := s.slots.Window(b.EventDate, b.AnchorMinutes, b.OffsetMinutes, b.Guests)
	w := chef.Window{Start: start, End: end}
	for _, ch := range pool {
		if s.calendar.IsFree(ch.ID, w) {
			return true
		}
	}
	return false
}

func (s *Service) suggestFor(ctx context.Context, b *Booking, pool []chef.Chef, reason suggest.Reason) []suggest.Candidate {
	check := func(ctx context.Context, date time.Time, anchorMinutes int) (bool, error) {
		start, end := s.slots.Window(date, anchorMinutes, 0, b.Guests)
		w := chef.Window{Start: start, End: end}
		for _, ch := range pool {
			if s.calendar.IsFree(ch.ID, w) {
				return true, nil
			}
		}
		return false, nil
	}
	return s.suggester.Suggest(ctx, suggest.Request{
		Date:          b.EventDate,
		AnchorMinutes: b.AnchorMinutes,
		Guests:        b.Guests,
	}, reason, check)
}

func (s *Service) escalate(ctx context.Context, b *Booking, out Outcome, reason string) (Outcome, error) {
	b.Status = StatusEscalated
	if err := s.store.Create(ctx, b); err != nil {
		return Outcome{}, err
	}
	if err := s.escalator.EscalateToHuman(ctx, b.ID, reason); err != nil {
		log.Printf("escalate booking %s: %v", b.ID, err)
	}
	out.Escalated = true
	return out, nil
}

func (s *Service) persistCommitment(ctx context.Context, b *Booking, chefID types.ID) {
	if s.commitments == nil {
		return
	}
	start, end := s.slots.Window(b.EventDate, b.AnchorMinutes, b.OffsetMinutes, b.Guests)
	err := s.commitments.SaveCommitment(ctx, chefID, chef.Commitment{
		BookingID: b.ID,
		Window:    chef.Window{Start: start, End: end},
		Venue:     b.Venue,
	})
	if err != nil {
		log.Printf("persist commitment for booking %s: %v", b.ID, err)
	}
}

func reasonFor(err error) suggest.Reason {
	if errors.Is(err, travel.ErrEstimateUnavailable) {
		return suggest.ReasonTravelUnknown
	}
	return suggest.ReasonNoChef
}
