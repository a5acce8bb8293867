package travel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"banquet/internal/config"
	"banquet/internal/types"
)

type mockProvider struct {
	mu       sync.Mutex
	calls    int
	duration time.Duration
	err      error
}

func (m *mockProvider) TravelTime(_ context.Context, _, _ types.Point, _ time.Time) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.duration, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func testTravelCfg() config.TravelConfig {
	return config.TravelConfig{
		CacheTTL:        7 * 24 * time.Hour,
		RushStartHour:   15,
		RushEndHour:     19,
		RushMultiplier:  1.5,
		CoordPrecision:  2,
		ProviderTimeout: time.Second,
	}
}

// offPeak is a Tuesday at noon.
var offPeak = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// rushHour is a Tuesday at 16:30.
var rushHour = time.Date(2026, 3, 10, 16, 30, 0, 0, time.UTC)

func TestEstimate_CacheHitOnNearbyCoordinates(t *testing.T) {
	p := &mockProvider{duration: 20 * time.Minute}
	o := NewOracle(p, NewMemoryCache(), testTravelCfg())
	ctx := context.Background()

	origin := types.Point{Lat: 25.0331, Lng: 121.5649}
	dest := types.Point{Lat: 25.0478, Lng: 121.5170}

	if _, err := o.Estimate(ctx, origin, dest, offPeak); err != nil {
		t.Fatalf("first estimate: %v", err)
	}

	// Slightly moved origin within rounding tolerance, 20 minutes later in the
	// same hour bucket: must be a cache hit.
	nearby := types.Point{Lat: 25.0334, Lng: 121.5651}
	later := offPeak.Add(20 * time.Minute)
	if _, err := o.Estimate(ctx, nearby, dest, later); err != nil {
		t.Fatalf("second estimate: %v", err)
	}

	if p.callCount() != 1 {
		t.Fatalf("expected exactly 1 provider call, got %d", p.callCount())
	}
}

func TestEstimate_DistinctBucketsMiss(t *testing.T) {
	p := &mockProvider{duration: 20 * time.Minute}
	o := NewOracle(p, NewMemoryCache(), testTravelCfg())
	ctx := context.Background()

	origin := types.Point{Lat: 25.03, Lng: 121.56}
	dest := types.Point{Lat: 25.05, Lng: 121.52}

	if _, err := o.Estimate(ctx, origin, dest, offPeak); err != nil {
		t.Fatalf("estimate: %v", err)
	}
	// Two hours later: different hour bucket, provider called again.
	if _, err := o.Estimate(ctx, origin, dest, offPeak.Add(2*time.Hour)); err != nil {
		t.Fatalf("estimate: %v", err)
	}

	if p.callCount() != 2 {
		t.Fatalf("expected 2 provider calls across buckets, got %d", p.callCount())
	}
}

func TestEstimate_RushHourMultiplier(t *testing.T) {
	p := &mockProvider{duration: 20 * time.Minute}
	o := NewOracle(p, NewMemoryCache(), testTravelCfg())
	ctx := context.Background()

	origin := types.Point{Lat: 25.03, Lng: 121.56}
	dest := types.Point{Lat: 25.05, Lng: 121.52}

	got, err := o.Estimate(ctx, origin, dest, rushHour)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if got != 30*time.Minute {
		t.Fatalf("expected 30m during rush hour, got %v", got)
	}

	// Weekend at the same hour: no multiplier.
	saturday := time.Date(2026, 3, 14, 16, 30, 0, 0, time.UTC)
	got, err = o.Estimate(ctx, origin, dest, saturday)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if got != 20*time.Minute {
		t.Fatalf("expected 20m on weekend, got %v", got)
	}
}

func TestEstimate_StaleFallbackOnProviderFailure(t *testing.T) {
	p := &mockProvider{duration: 20 * time.Minute}
	o := NewOracle(p, NewMemoryCache(), testTravelCfg())
	ctx := context.Background()

	origin := types.Point{Lat: 25.03, Lng: 121.56}
	dest := types.Point{Lat: 25.05, Lng: 121.52}

	if _, err := o.Estimate(ctx, origin, dest, offPeak); err != nil {
		t.Fatalf("seed estimate: %v", err)
	}

	// Provider goes down; a different bucket must fall back to the last
	// successful estimate for the pair.
	p.err = errors.New("provider down")
	got, err := o.Estimate(ctx, origin, dest, offPeak.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("expected stale fallback, got %v", err)
	}
	if got != 20*time.Minute {
		t.Fatalf("expected stale 20m, got %v", got)
	}
}

func TestEstimate_UnavailableWithoutHistory(t *testing.T) {
	p := &mockProvider{err: errors.New("provider down")}
	o := NewOracle(p, NewMemoryCache(), testTravelCfg())

	_, err := o.Estimate(context.Background(), types.Point{Lat: 1, Lng: 1}, types.Point{Lat: 2, Lng: 2}, offPeak)
	if !errors.Is(err, ErrEstimateUnavailable) {
		t.Fatalf("expected ErrEstimateUnavailable, got %v", err)
	}
}

func TestEstimate_ConcurrentMissesDoNotCorrupt(t *testing.T) {
	p := &mockProvider{duration: 20 * time.Minute}
	o := NewOracle(p, NewMemoryCache(), testTravelCfg())
	ctx := context.Background()

	origin := types.Point{Lat: 25.03, Lng: 121.56}
	dest := types.Point{Lat: 25.05, Lng: 121.52}

	const goroutines = 8
	var wg sync.WaitGroup
	results := make(chan time.Duration, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := o.Estimate(ctx, origin, dest, offPeak)
			if err != nil {
				t.Errorf("estimate: %v", err)
				return
			}
			results <- d
		}()
	}
	wg.Wait()
	close(results)

	for d := range results {
		if d != 20*time.Minute {
			t.Fatalf("expected 20m from all goroutines, got %v", d)
		}
	}
}
