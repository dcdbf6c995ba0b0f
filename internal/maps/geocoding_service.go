// README: Geocoding via the Google Maps API for stage addresses.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"gofer/internal/types"
)

// GeocodingService resolves free-text stage addresses to coordinates.
type GeocodingService struct {
	client *maps.Client
}

// NewGeocodingService creates a GeocodingService with the given API key.
func NewGeocodingService(apiKey string) (*GeocodingService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodingService{client: client}, nil
}

// Geocode returns the best-match coordinate for an address.
func (s *GeocodingService) Geocode(ctx context.Context, address string) (types.Point, error) {
	if address == "" {
		return types.Point{}, fmt.Errorf("empty address")
	}
	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:  address,
		Language: "zh-TW",
		Region:   "TW",
	})
	if err != nil {
		return types.Point{}, fmt.Errorf("geocoding api error: %w", err)
	}
	if len(results) == 0 {
		return types.Point{}, fmt.Errorf("no geocoding result for %q", address)
	}
	loc := results[0].Geometry.Location
	return types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
