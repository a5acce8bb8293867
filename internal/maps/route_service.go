package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"banquet/internal/types"
)

// RouteService handles travel-time lookups against the Google Maps API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// TravelTime returns the driving duration from origin to destination leaving
// at the given time.
func (s *RouteService) TravelTime(ctx context.Context, origin, destination types.Point, when time.Time) (time.Duration, error) {
	r := &maps.DirectionsRequest{
		Origin:        fmt.Sprintf("%f,%f", origin.Lat, origin.Lng),
		Destination:   fmt.Sprintf("%f,%f", destination.Lat, destination.Lng),
		Mode:          maps.TravelModeDriving,
		DepartureTime: fmt.Sprintf("%d", when.Unix()),
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	if leg.DurationInTraffic > 0 {
		return leg.DurationInTraffic, nil
	}
	return leg.Duration, nil
}
