// README: Geo resolver turns addresses into coordinates and checks service-area membership.
package geo

import (
	"context"
	"errors"
	"time"

	"banquet/internal/config"
	"banquet/internal/types"
)

var (
	// ErrGeocodeFailed means the address could not be resolved; the booking
	// must not proceed to scheduling.
	ErrGeocodeFailed = errors.New("address could not be geocoded")
	// ErrNoStations means the resolver was constructed without any hubs.
	ErrNoStations = errors.New("no stations configured")
)

// Geocoder is the external address-resolution collaborator.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (types.Point, error)
}

// Resolver resolves booking addresses and decides serviceability against the
// nearest station. Resolution is idempotent for the same address string.
type Resolver struct {
	geocoder Geocoder
	stations []Station
	timeout  time.Duration
}

func NewResolver(geocoder Geocoder, cfg config.GeoConfig) *Resolver {
	stations := make([]Station, 0, len(cfg.Stations))
	for _, s := range cfg.Stations {
		stations = append(stations, Station{
			ID:               types.ID(s.ID),
			Position:         types.Point{Lat: s.Lat, Lng: s.Lng},
			ServiceRadiusKm:  s.ServiceRadiusKm,
			EscalateRadiusKm: s.EscalateRadiusKm,
		})
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{geocoder: geocoder, stations: stations, timeout: timeout}
}

// Resolve geocodes a free-form address once, bounded by the provider timeout.
// A failed geocode is returned with GeocodeFailed status alongside
// ErrGeocodeFailed so callers can persist the attempt.
func (r *Resolver) Resolve(ctx context.Context, address string) (ResolvedAddress, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pos, err := r.geocoder.Geocode(callCtx, address)
	if err != nil {
		return ResolvedAddress{Raw: address, Status: GeocodeFailed}, ErrGeocodeFailed
	}
	return ResolvedAddress{Raw: address, Position: pos, Status: GeocodeResolved}, nil
}

// CheckServiceArea computes the great-circle distance from the point to every
// station and classifies the point against the nearest one.
func (r *Resolver) CheckServiceArea(p types.Point) (AreaCheck, error) {
	if len(r.stations) == 0 {
		return AreaCheck{}, ErrNoStations
	}

	nearest := r.stations[0]
	best := haversineKm(p.Lat, p.Lng, nearest.Position.Lat, nearest.Position.Lng)
	for _, s := range r.stations[1:] {
		d := haversineKm(p.Lat, p.Lng, s.Position.Lat, s.Position.Lng)
		if d < best {
			nearest, best = s, d
		}
	}

	return AreaCheck{
		Station:            nearest,
		DistanceKm:         best,
		Serviceable:        best <= nearest.ServiceRadiusKm,
		RequiresEscalation: best > nearest.EscalateRadiusKm,
	}, nil
}
