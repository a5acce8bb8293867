// README: Station hubs and service-area resolution results.
package geo

import "banquet/internal/types"

// GeocodeStatus tracks the lifecycle of a free-form address.
type GeocodeStatus string

const (
	GeocodeUnresolved GeocodeStatus = "unresolved"
	GeocodeResolved   GeocodeStatus = "resolved"
	GeocodeFailed     GeocodeStatus = "failed"
)

// Station is a fixed geographic hub chefs dispatch from.
type Station struct {
	ID               types.ID
	Position         types.Point
	ServiceRadiusKm  float64
	EscalateRadiusKm float64
}

// ResolvedAddress is a free-form address plus its geocoding outcome. Addresses
// are immutable once resolved; a changed address is a new ResolvedAddress.
type ResolvedAddress struct {
	Raw      string
	Position types.Point
	Status   GeocodeStatus
}

// AreaCheck is the result of resolving a point against the nearest station.
// The station is computed at evaluation time, never stored as a relationship,
// so radius reconfiguration takes effect immediately.
type AreaCheck struct {
	Station            Station
	DistanceKm         float64
	Serviceable        bool
	RequiresEscalation bool
}
