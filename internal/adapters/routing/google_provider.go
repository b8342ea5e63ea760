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

	"googlemaps.github.io/maps"
)

// GoogleConfig holds the Google Maps Platform settings.
type GoogleConfig struct {
	APIKey string
	// BaseURL overrides the Maps API host (tests).
	BaseURL string
	Region  string
}

// GoogleRouteProvider implements RouteProvider with the Google Geocoding and
// Directions APIs.
type GoogleRouteProvider struct {
	maps         *maps.Client
	name         string
	policy       httpx.Policy
	region       string
	geocodeCache ports.GeocodeCache
}

// NewGoogleRouteProvider returns an error wrapping domain.ErrNotConfigured
// when no API key is set. geocodeCache may be nil.
func NewGoogleRouteProvider(
	cfg GoogleConfig,
	client *httpx.Client,
	geocodeCache ports.GeocodeCache,
) (*GoogleRouteProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("google maps api key is empty: %w", domain.ErrNotConfigured)
	}
	if client == nil {
		client = httpx.New("google")
	}

	mc, err := NewMapsClient(cfg.APIKey, cfg.BaseURL, client)
	if err != nil {
		return nil, err
	}

	return &GoogleRouteProvider{
		maps:         mc,
		name:         client.Name(),
		policy:       client.Policy(),
		region:       strings.ToLower(cfg.Region),
		geocodeCache: geocodeCache,
	}, nil
}

// NewMapsClient builds a Maps SDK client sharing client's HTTP session.
func NewMapsClient(apiKey, baseURL string, client *httpx.Client) (*maps.Client, error) {
	opts := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(client.HTTPClient()),
	}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}

	mc, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("google maps client: %w", err)
	}
	return mc, nil
}

func (g *GoogleRouteProvider) PlanRoute(
	ctx context.Context,
	addresses []string,
	pref domain.RoutePreference,
) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "google.PlanRoute")(&err)

	if len(addresses) < 2 {
		return nil, errors.New("plan google route: at least two addresses are required")
	}

	norm := make([]string, len(addresses))
	for i, a := range addresses {
		norm[i] = strings.Join(strings.Fields(a), " ")
		if norm[i] == "" {
			return nil, fmt.Errorf("plan google route: address %d is empty", i)
		}
	}

	coords, err := resolveCoordinates(ctx, g.geocodeCache, norm, g.geocodeMany)
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

	if samePlace(points) {
		return singlePointRoute(addresses, points[0]), nil
	}

	return g.directions(ctx, addresses, points, pref)
}

func (g *GoogleRouteProvider) geocodeMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "google.geocodeMany")(&err)

	out := make(map[string]domain.Coordinates, len(addresses))
	for _, a := range addresses {
		if _, ok := out[a]; ok {
			continue
		}

		req := &maps.GeocodingRequest{Address: a, Region: g.region}
		results, err := httpx.Retry(ctx, g.name, g.policy, func() ([]maps.GeocodingResult, error) {
			return markPermanent(g.maps.Geocode(ctx, req))
		})
		if err != nil {
			return nil, g.providerError("geocode", a, err)
		}
		if len(results) == 0 {
			return nil, &domain.RouteResolutionError{Address: a, Err: domain.ErrNotFound}
		}

		loc := results[0].Geometry.Location
		out[a] = domain.Coordinates{Lat: loc.Lat, Lon: loc.Lng}
	}

	return out, nil
}

// directions requests one route through points and stitches the step
// geometries into a single polyline. Stop i sits on the last vertex of leg i-1.
func (g *GoogleRouteProvider) directions(
	ctx context.Context,
	addresses []string,
	points []domain.Coordinates,
	pref domain.RoutePreference,
) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "google.directions")(&err)

	req := &maps.DirectionsRequest{
		Origin:      points[0].String(),
		Destination: points[len(points)-1].String(),
		Mode:        maps.TravelModeDriving,
	}
	for _, p := range points[1 : len(points)-1] {
		req.Waypoints = append(req.Waypoints, p.String())
	}
	if pref.AvoidHighways {
		req.Avoid = append(req.Avoid, maps.AvoidHighways)
	}
	if pref.AvoidTolls {
		req.Avoid = append(req.Avoid, maps.AvoidTolls)
	}

	routes, err := httpx.Retry(ctx, g.name, g.policy, func() ([]maps.Route, error) {
		routes, _, err := g.maps.Directions(ctx, req)
		return markPermanent(routes, err)
	})
	if err != nil {
		return nil, g.providerError("directions", "", err)
	}
	if len(routes) == 0 {
		return nil, &domain.RouteResolutionError{Err: errors.New("google returned no routes")}
	}

	legs := routes[0].Legs
	if len(legs) != len(points)-1 {
		return nil, &domain.RouteResolutionError{
			Err: fmt.Errorf("google returned %d legs for %d addresses", len(legs), len(addresses)),
		}
	}

	line := domain.Polyline{points[0]}
	stops := make([]domain.RouteStop, len(addresses))
	stops[0] = domain.RouteStop{Address: addresses[0], Location: points[0], VertexIndex: 0}

	for i, leg := range legs {
		for _, step := range leg.Steps {
			latlngs, err := step.Polyline.Decode()
			if err != nil {
				return nil, &domain.RouteResolutionError{
					Address: addresses[i+1],
					Err:     fmt.Errorf("decode step polyline: %w", err),
				}
			}
			for _, ll := range latlngs {
				c := domain.Coordinates{Lat: ll.Lat, Lon: ll.Lng}
				if c == line[len(line)-1] {
					continue
				}
				line = append(line, c)
			}
		}
		stops[i+1] = domain.RouteStop{
			Address:     addresses[i+1],
			Location:    line[len(line)-1],
			VertexIndex: len(line) - 1,
		}
	}

	return &domain.Route{Polyline: line, Stops: stops}, nil
}

// mapsStatus extracts the API status from an SDK error ("maps: STATUS - message").
func mapsStatus(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, s := range []string{
		"OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT", "REQUEST_DENIED", "INVALID_REQUEST",
		"ZERO_RESULTS", "NOT_FOUND", "MAX_WAYPOINTS_EXCEEDED", "MAX_ROUTE_LENGTH_EXCEEDED",
		"UNKNOWN_ERROR",
	} {
		if strings.Contains(msg, s) {
			return s
		}
	}
	return ""
}

// markPermanent stops retries for SDK errors that will not change on a retry.
// Only rate limiting, UNKNOWN_ERROR and transport failures are retried.
func markPermanent[T any](v T, err error) (T, error) {
	if err == nil {
		return v, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return v, httpx.Permanent(err)
	}
	switch mapsStatus(err) {
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR", "":
		return v, err
	default:
		return v, httpx.Permanent(err)
	}
}

func (g *GoogleRouteProvider) providerError(op, address string, err error) error {
	switch mapsStatus(err) {
	case "REQUEST_DENIED", "OVER_DAILY_LIMIT":
		return fmt.Errorf("google %s: %w: %w", op, domain.ErrNotConfigured, err)
	case "ZERO_RESULTS", "NOT_FOUND":
		return &domain.RouteResolutionError{Address: address, Err: errors.Join(domain.ErrNotFound, err)}
	}
	if address != "" {
		return &domain.RouteResolutionError{Address: address, Err: err}
	}
	return fmt.Errorf("google %s: %w", op, err)
}
