package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"fieldbook/backend/internal/domain"
)

// GoogleMaps geocodes through the Google Maps Geocoding API.
type GoogleMaps struct {
	client *maps.Client
}

func NewGoogleMaps(apiKey string) (*GoogleMaps, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("google geocoder requires an api key")
	}
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google maps client: %w", err)
	}
	return &GoogleMaps{client: c}, nil
}

func (g *GoogleMaps) Geocode(ctx context.Context, addr domain.Address) (*domain.LatLng, error) {
	req := &maps.GeocodingRequest{Address: addr.String()}
	if pc := strings.TrimSpace(addr.PostalCode); pc != "" {
		req.Components = map[maps.Component]string{maps.ComponentPostalCode: pc}
	}

	res, err := g.client.Geocode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("google geocode: %w", err)
	}
	if len(res) == 0 {
		return nil, nil
	}
	loc := res[0].Geometry.Location
	return &domain.LatLng{Lat: loc.Lat, Lng: loc.Lng}, nil
}
