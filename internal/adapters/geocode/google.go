package geocode

import (
	"context"
	"fmt"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/httpx"
	"route-weather-service/internal/platform/obs"
	"route-weather-service/internal/ports"
	"strings"

	"googlemaps.github.io/maps"
)

// Google reverse geocodes with the Google Geocoding API, asking only for
// postal_code results.
type Google struct {
	maps   *maps.Client
	name   string
	policy httpx.Policy
}

func NewGoogle(mc *maps.Client, client *httpx.Client) *Google {
	return &Google{maps: mc, name: client.Name(), policy: client.Policy()}
}

func (g *Google) ResolvePostal(ctx context.Context, c domain.Coordinates) (_ ports.Place, err error) {
	defer obs.Time(ctx, "google.ResolvePostal")(&err)

	req := &maps.GeocodingRequest{
		LatLng:     &maps.LatLng{Lat: c.Lat, Lng: c.Lon},
		ResultType: []string{"postal_code"},
	}

	results, err := httpx.Retry(ctx, g.name, g.policy, func() ([]maps.GeocodingResult, error) {
		results, err := g.maps.ReverseGeocode(ctx, req)
		if err != nil && !transientMapsError(err) {
			return nil, httpx.Permanent(err)
		}
		return results, err
	})
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "REQUEST_DENIED") || strings.Contains(msg, "OVER_DAILY_LIMIT"):
			return ports.Place{}, fmt.Errorf("google reverse: %w: %w", domain.ErrNotConfigured, err)
		case strings.Contains(msg, "ZERO_RESULTS"):
			return ports.Place{}, fmt.Errorf("google reverse %s: %w", c, domain.ErrNotFound)
		}
		return ports.Place{}, fmt.Errorf("google reverse: %w", err)
	}

	for _, r := range results {
		var place ports.Place
		for _, comp := range r.AddressComponents {
			for _, t := range comp.Types {
				switch t {
				case "postal_code":
					place.PostalCode = comp.ShortName
				case "country":
					place.CountryCode = strings.ToUpper(comp.ShortName)
				}
			}
		}
		if place.PostalCode != "" {
			return place, nil
		}
	}

	return ports.Place{}, fmt.Errorf("google reverse %s: no postal code: %w", c, domain.ErrNotFound)
}

func transientMapsError(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "OVER_QUERY_LIMIT") || strings.Contains(msg, "UNKNOWN_ERROR") {
		return true
	}
	for _, s := range []string{"REQUEST_DENIED", "INVALID_REQUEST", "ZERO_RESULTS", "OVER_DAILY_LIMIT", "context canceled", "deadline exceeded"} {
		if strings.Contains(msg, s) {
			return false
		}
	}
	return true
}
