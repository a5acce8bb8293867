package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"banquet/internal/types"
)

// GeocodeService resolves free-form addresses via the Google Geocoding API.
type GeocodeService struct {
	client *maps.Client
}

// NewGeocodeService creates a new GeocodeService with the given API Key.
func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// Geocode returns the coordinates of the best match for the address.
func (s *GeocodeService) Geocode(ctx context.Context, address string) (types.Point, error) {
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return types.Point{}, fmt.Errorf("geocode api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("no geocode result for %q", address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
