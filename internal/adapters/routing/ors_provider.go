package routing

import (
	"context"
	"errors"
	"fmt"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/httpx"
	"route-weather-service/internal/platform/obs"
	"route-weather-service/internal/ports"
	"strings"
)

// ORSConfig holds the OpenRouteService account and request settings.
type ORSConfig struct {
	APIKey  string
	BaseURL string
	Profile string
	// Country restricts forward geocoding (ISO 3166-1 alpha-2); empty means worldwide.
	Country string
}

// ORSRouteProvider implements RouteProvider using OpenRouteService.
//
// It coordinates:
//   - Address normalization
//   - Persistent geocode caching
//   - Forward geocoding of cache misses
//   - One directions call through every stop, in order
//
// The provider is safe for concurrent use.
type ORSRouteProvider struct {
	client       *httpx.Client
	apiKey       string
	baseURL      string
	profile      string
	country      string
	geocodeCache ports.GeocodeCache
}

// NewORSRouteProvider returns an error wrapping domain.ErrNotConfigured when
// no API key is set. geocodeCache may be nil.
func NewORSRouteProvider(
	cfg ORSConfig,
	client *httpx.Client,
	geocodeCache ports.GeocodeCache,
) (*ORSRouteProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ORS api key is empty: %w", domain.ErrNotConfigured)
	}
	if client == nil {
		client = httpx.New("ors")
	}

	provider := &ORSRouteProvider{
		client:       client,
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		profile:      cfg.Profile,
		country:      cfg.Country,
		geocodeCache: geocodeCache,
	}
	if provider.baseURL == "" {
		provider.baseURL = "https://api.openrouteservice.org"
	}
	if provider.profile == "" {
		provider.profile = "driving-car"
	}

	return provider, nil
}

// normalize ensures consistent cache keys by collapsing whitespace.
func (o *ORSRouteProvider) normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PlanRoute geocodes addresses and asks ORS for a single route visiting them in order.
func (o *ORSRouteProvider) PlanRoute(
	ctx context.Context,
	addresses []string,
	pref domain.RoutePreference,
) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "ors.PlanRoute")(&err)

	if len(addresses) < 2 {
		return nil, errors.New("plan ORS route: at least two addresses are required")
	}

	norm := make([]string, len(addresses))
	for i, a := range addresses {
		norm[i] = o.normalize(a)
		if norm[i] == "" {
			return nil, fmt.Errorf("plan ORS route: address %d is empty", i)
		}
	}

	coords, err := resolveCoordinates(ctx, o.geocodeCache, norm, o.geocodeMany)
	if err != nil {
		return nil, err
	}

	points := make([]domain.Coordinates, len(norm))
	for i, a := range norm {
		c, ok := coords[a]
		if !ok {
			return nil, &domain.RouteResolutionError{Address: addresses[i], Err: domain.ErrNotFound}
		}
		points[i] = c
	}

	// ORS refuses a route whose waypoints are all the same place.
	if samePlace(points) {
		return singlePointRoute(addresses, points[0]), nil
	}

	line, wayPoints, err := o.fetchDirections(ctx, points, pref)
	if err != nil {
		return nil, o.directionsError(err, addresses)
	}

	if len(wayPoints) != len(addresses) {
		return nil, &domain.RouteResolutionError{
			Err: fmt.Errorf("ORS returned %d way points for %d addresses", len(wayPoints), len(addresses)),
		}
	}

	stops := make([]domain.RouteStop, len(addresses))
	for i, a := range addresses {
		idx := wayPoints[i]
		if idx < 0 || idx >= len(line) {
			return nil, &domain.RouteResolutionError{
				Address: a,
				Err:     fmt.Errorf("way point %d outside geometry of %d points", idx, len(line)),
			}
		}
		stops[i] = domain.RouteStop{Address: a, Location: line[idx], VertexIndex: idx}
	}

	return &domain.Route{Polyline: line, Stops: stops}, nil
}
