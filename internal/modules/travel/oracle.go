// README: Travel-time oracle with bucketed caching and rush-hour adjustment.
package travel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"banquet/internal/config"
	"banquet/internal/types"
)

// ErrEstimateUnavailable means the provider failed and no cached estimate
// exists for the pair. Callers must treat the trip as not auto-assignable and
// fall back to negotiation.
var ErrEstimateUnavailable = errors.New("travel estimate unavailable")

// Provider is the external travel-time collaborator. It is rate-limited and
// billed per call, which is why every result is cached.
type Provider interface {
	TravelTime(ctx context.Context, origin, destination types.Point, when time.Time) (time.Duration, error)
}

// Oracle answers "how long from A to B at time T" from cache when possible.
type Oracle struct {
	provider Provider
	cache    Cache
	cfg      config.TravelConfig
}

func NewOracle(provider Provider, cache Cache, cfg config.TravelConfig) *Oracle {
	return &Oracle{provider: provider, cache: cache, cfg: cfg}
}

// Estimate returns the travel duration from origin to destination departing at
// when. Coordinates are rounded and the departure bucketed by weekday and hour
// before the cache lookup, so nearby requests share entries. On provider
// failure the last successful estimate for the same pair is returned
// regardless of bucket.
func (o *Oracle) Estimate(ctx context.Context, origin, destination types.Point, when time.Time) (time.Duration, error) {
	pair := o.pairKey(origin, destination)
	key := o.bucketKey(pair, when)

	if e, ok, err := o.cache.Get(ctx, key); err == nil && ok {
		return e.Duration, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.ProviderTimeout)
	defer cancel()

	raw, err := o.provider.TravelTime(callCtx, origin, destination, when)
	if err != nil {
		if e, ok, lerr := o.cache.Get(ctx, lastKey(pair)); lerr == nil && ok {
			return e.Duration, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrEstimateUnavailable, err)
	}

	mult := 1.0
	if o.isRushHour(when) {
		mult = o.cfg.RushMultiplier
	}
	entry := Entry{
		Duration:   time.Duration(float64(raw) * mult),
		Multiplier: mult,
		StoredAt:   time.Now(),
	}

	// Duplicate writes from simultaneous misses are fine; entries are
	// immutable once written and last-writer-wins.
	_ = o.cache.Put(ctx, key, entry, o.cfg.CacheTTL)
	_ = o.cache.Put(ctx, lastKey(pair), entry, 0)

	return entry.Duration, nil
}

// isRushHour reports whether when falls on a weekday inside the configured
// rush window.
func (o *Oracle) isRushHour(when time.Time) bool {
	wd := when.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	h := when.Hour()
	return h >= o.cfg.RushStartHour && h < o.cfg.RushEndHour
}

func (o *Oracle) pairKey(origin, destination types.Point) string {
	p := o.cfg.CoordPrecision
	return fmt.Sprintf("%s|%s", roundPoint(origin, p), roundPoint(destination, p))
}

func (o *Oracle) bucketKey(pair string, when time.Time) string {
	return fmt.Sprintf("tt:%s:%d:%d", pair, int(when.Weekday()), when.Hour())
}

func lastKey(pair string) string {
	return "tt:last:" + pair
}

func roundPoint(p types.Point, precision int) string {
	factor := math.Pow10(precision)
	lat := math.Round(p.Lat*factor) / factor
	lng := math.Round(p.Lng*factor) / factor
	return fmt.Sprintf("%.*f,%.*f", precision, lat, precision, lng)
}
