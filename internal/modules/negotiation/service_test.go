// README: Negotiation coordinator tests with in-memory mocks.
package negotiation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"banquet/internal/config"
	"banquet/internal/modules/booking"
	"banquet/internal/modules/suggest"
	"banquet/internal/types"
)

// mockStore is an in-memory Store with the same optimistic guard semantics as
// the Postgres store.
type mockStore struct {
	mu       sync.Mutex
	requests map[types.ID]*Request
}

func newMockStore() *mockStore {
	return &mockStore{requests: make(map[types.ID]*Request)}
}

func (m *mockStore) Create(_ context.Context, r *Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *mockStore) Get(_ context.Context, id types.ID) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockStore) UpdateState(_ context.Context, id types.ID, from, to State, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return false, ErrNotFound
	}
	if r.State != from || r.StateVersion != version {
		return false, nil
	}
	r.State = to
	r.StateVersion++
	return true, nil
}

func (m *mockStore) ListExpiredPending(_ context.Context, now time.Time) ([]*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Request
	for _, r := range m.requests {
		if r.State == StatePending && r.Deadline.Before(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockStore) forceDeadline(id types.ID, d time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[id].Deadline = d
}

func (m *mockStore) stateOf(id types.ID) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[id].State
}

func (m *mockStore) only() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		cp := *r
		return &cp
	}
	return nil
}

type mockMessenger struct {
	mu       sync.Mutex
	offers   int
	notified []types.ID
	lastPct  float64
	sendErr  error
}

func (m *mockMessenger) SendOffer(_ context.Context, _ types.ID, _ []suggest.Candidate, pct float64, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.offers++
	m.lastPct = pct
	return nil
}

func (m *mockMessenger) NotifyEscalated(_ context.Context, customerID types.ID, _ types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, customerID)
	return nil
}

type mockGateway struct {
	mu        sync.Mutex
	slotTaken bool
	alts      []suggest.Candidate
	escalated []types.ID
	committed []types.ID
}

func (m *mockGateway) RespondedCandidate(_ context.Context, bookingID types.ID, _ time.Time, _ int) (types.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slotTaken {
		return "", booking.ErrSlotTaken
	}
	m.committed = append(m.committed, bookingID)
	return "chef_a", nil
}

func (m *mockGateway) AlternativesFor(_ context.Context, _ types.ID) ([]suggest.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alts, nil
}

func (m *mockGateway) EscalateBooking(_ context.Context, bookingID types.ID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.escalated = append(m.escalated, bookingID)
	return nil
}

func (m *mockGateway) escalationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.escalated)
}

func testNegCfg() config.NegotiationConfig {
	return config.NegotiationConfig{
		Deadline:         2 * time.Hour,
		SweepInterval:    time.Minute,
		RestartRetries:   2,
		IncentivePercent: 10,
	}
}

var candDate = time.Date(2026, 4, 11, 0, 0, 0, 0, time.UTC)

func testCandidates() []suggest.Candidate {
	return []suggest.Candidate{
		{Date: candDate, AnchorMinutes: 18 * 60, Score: 80, NeedsIncentive: true},
		{Date: candDate, AnchorMinutes: 12 * 60, Score: 75, NeedsIncentive: true},
	}
}

func testBooking() *booking.Booking {
	return &booking.Booking{ID: "bk1", CustomerID: "cust1", Status: booking.StatusNegotiating}
}

func TestOpen_DispatchesAndGoesPending(t *testing.T) {
	store := newMockStore()
	msg := &mockMessenger{}
	svc := NewService(store, msg, &mockGateway{}, testNegCfg())

	id, err := svc.Open(context.Background(), testBooking(), testCandidates())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if msg.offers != 1 {
		t.Fatalf("expected 1 offer dispatched, got %d", msg.offers)
	}
	if msg.lastPct != 10 {
		t.Fatalf("expected incentive 10%% for beyond-preferred candidates, got %f", msg.lastPct)
	}
	if store.stateOf(id) != StatePending {
		t.Fatalf("expected pending after dispatch, got %s", store.stateOf(id))
	}
}

// TestOpen_DispatchFailureEscalates: an offer that could not be delivered can
// never be answered. The request must close and the booking must reach the
// human queue rather than sit negotiating forever.
func TestOpen_DispatchFailureEscalates(t *testing.T) {
	store := newMockStore()
	msg := &mockMessenger{sendErr: errors.New("broker down")}
	gw := &mockGateway{}
	svc := NewService(store, msg, gw, testNegCfg())

	if _, err := svc.Open(context.Background(), testBooking(), testCandidates()); err == nil {
		t.Fatal("expected the dispatch failure surfaced")
	}
	r := store.only()
	if r == nil {
		t.Fatal("expected the request persisted")
	}
	if r.State != StateRejected {
		t.Fatalf("an undispatched offer must close, got state %s", r.State)
	}
	if gw.escalationCount() != 1 {
		t.Fatalf("expected the booking escalated, got %d", gw.escalationCount())
	}
}

func TestAccept_CommitsCandidate(t *testing.T) {
	store := newMockStore()
	gw := &mockGateway{}
	svc := NewService(store, &mockMessenger{}, gw, testNegCfg())

	id, err := svc.Open(context.Background(), testBooking(), testCandidates())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	res, err := svc.Accept(context.Background(), id, 0)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.State != StateAccepted || res.AssignedChef != "chef_a" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if store.stateOf(id) != StateAccepted {
		t.Fatalf("expected accepted state, got %s", store.stateOf(id))
	}
}

func TestAccept_BadCandidateIndex(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockMessenger{}, &mockGateway{}, testNegCfg())

	id, _ := svc.Open(context.Background(), testBooking(), testCandidates())
	if _, err := svc.Accept(context.Background(), id, 5); !errors.Is(err, ErrBadCandidate) {
		t.Fatalf("expected ErrBadCandidate, got %v", err)
	}
}

// TestAccept_SlotTakenRestarts covers the critical race: the chosen slot was
// taken between dispatch and acceptance. The coordinator must not commit; it
// regenerates suggestions and restarts the negotiation.
func TestAccept_SlotTakenRestarts(t *testing.T) {
	store := newMockStore()
	gw := &mockGateway{slotTaken: true, alts: testCandidates()}
	msg := &mockMessenger{}
	svc := NewService(store, msg, gw, testNegCfg())

	id, _ := svc.Open(context.Background(), testBooking(), testCandidates())

	res, err := svc.Accept(context.Background(), id, 0)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if len(gw.committed) != 0 {
		t.Fatal("a taken slot must never be committed")
	}
	if res.NewNegotiationID == "" {
		t.Fatal("expected a restarted negotiation")
	}
	if res.NewNegotiationID == id {
		t.Fatal("restart must create a fresh negotiation")
	}

	restarted, err := svc.Get(context.Background(), res.NewNegotiationID)
	if err != nil {
		t.Fatalf("get restarted: %v", err)
	}
	if restarted.Attempt != 1 {
		t.Fatalf("expected attempt 1 on restart, got %d", restarted.Attempt)
	}
	if msg.offers != 2 {
		t.Fatalf("expected a second offer dispatched, got %d", msg.offers)
	}
}

// TestAccept_SlotTakenRetriesExhausted verifies the bounded restart: past the
// retry bound the booking escalates instead of cycling forever.
func TestAccept_SlotTakenRetriesExhausted(t *testing.T) {
	store := newMockStore()
	gw := &mockGateway{slotTaken: true, alts: testCandidates()}
	msg := &mockMessenger{}
	cfg := testNegCfg()
	cfg.RestartRetries = 1
	svc := NewService(store, msg, gw, cfg)

	id, _ := svc.Open(context.Background(), testBooking(), testCandidates())

	res, err := svc.Accept(context.Background(), id, 0)
	if err != nil {
		t.Fatalf("first accept: %v", err)
	}
	res, err = svc.Accept(context.Background(), res.NewNegotiationID, 0)
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if !res.Escalated {
		t.Fatal("expected escalation after retries exhausted")
	}
	if gw.escalationCount() != 1 {
		t.Fatalf("expected 1 escalation, got %d", gw.escalationCount())
	}
}

func TestReject_EscalatesImmediately(t *testing.T) {
	store := newMockStore()
	gw := &mockGateway{}
	svc := NewService(store, &mockMessenger{}, gw, testNegCfg())

	id, _ := svc.Open(context.Background(), testBooking(), testCandidates())

	res, err := svc.Reject(context.Background(), id)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if !res.Escalated {
		t.Fatal("expected escalation on reject")
	}
	if store.stateOf(id) != StateRejected {
		t.Fatalf("expected rejected state, got %s", store.stateOf(id))
	}
}

func TestSweep_ExpiresAndNotifies(t *testing.T) {
	store := newMockStore()
	gw := &mockGateway{}
	msg := &mockMessenger{}
	svc := NewService(store, msg, gw, testNegCfg())

	id, _ := svc.Open(context.Background(), testBooking(), testCandidates())
	store.forceDeadline(id, time.Now().Add(-time.Minute))

	if err := svc.SweepExpired(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if store.stateOf(id) != StateExpired {
		t.Fatalf("expected expired state, got %s", store.stateOf(id))
	}
	if gw.escalationCount() != 1 {
		t.Fatal("expected the booking escalated on expiry")
	}
	if len(msg.notified) != 1 {
		t.Fatal("expiry must notify the customer, not stay silent")
	}
}

// TestSweepVsAcceptRace verifies the sweep and a late response reconcile via
// the state guard: exactly one transition leaves pending.
func TestSweepVsAcceptRace(t *testing.T) {
	store := newMockStore()
	gw := &mockGateway{}
	svc := NewService(store, &mockMessenger{}, gw, testNegCfg())

	id, _ := svc.Open(context.Background(), testBooking(), testCandidates())
	store.forceDeadline(id, time.Now().Add(-time.Minute))

	var wg sync.WaitGroup
	acceptErrs := make(chan error, 1)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = svc.SweepExpired(context.Background())
	}()
	go func() {
		defer wg.Done()
		_, err := svc.Accept(context.Background(), id, 0)
		acceptErrs <- err
	}()
	wg.Wait()

	final := store.stateOf(id)
	err := <-acceptErrs
	switch final {
	case StateExpired:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("sweep won but accept returned %v", err)
		}
	case StateAccepted:
		if err != nil {
			t.Fatalf("accept won but returned %v", err)
		}
	default:
		t.Fatalf("request left pending in state %s", final)
	}
}

func TestAccept_AfterClosed(t *testing.T) {
	store := newMockStore()
	svc := NewService(store, &mockMessenger{}, &mockGateway{}, testNegCfg())

	id, _ := svc.Open(context.Background(), testBooking(), testCandidates())
	if _, err := svc.Reject(context.Background(), id); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.Accept(context.Background(), id, 0); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after terminal state, got %v", err)
	}
}
