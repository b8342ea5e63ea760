package routing

import (
	"context"
	"route-weather-service/internal/domain"
	"strings"
)

// MockPlace pins an address to a fixed coordinate.
type MockPlace struct {
	Address  string
	Location domain.Coordinates
}

// MockRouteProvider routes in straight lines between known addresses. It is
// a test double for the sampling pipeline and is not wired into the server.
type MockRouteProvider struct {
	m map[string]domain.Coordinates
}

func NewMockRouteProvider(places []MockPlace) *MockRouteProvider {
	m := make(map[string]domain.Coordinates, len(places))
	for _, p := range places {
		m[strings.Join(strings.Fields(p.Address), " ")] = p.Location
	}
	return &MockRouteProvider{m: m}
}

func (p *MockRouteProvider) PlanRoute(ctx context.Context, addresses []string, pref domain.RoutePreference) (*domain.Route, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	points := make([]domain.Coordinates, len(addresses))
	for i, a := range addresses {
		c, ok := p.m[strings.Join(strings.Fields(a), " ")]
		if !ok {
			return nil, &domain.RouteResolutionError{Address: a, Err: domain.ErrNotFound}
		}
		points[i] = c
	}

	if samePlace(points) {
		return singlePointRoute(addresses, points[0]), nil
	}

	line := domain.Polyline{points[0]}
	stops := []domain.RouteStop{{Address: addresses[0], Location: points[0]}}
	for i := 1; i < len(points); i++ {
		if points[i] != line[len(line)-1] {
			line = append(line, points[i])
		}
		stops = append(stops, domain.RouteStop{Address: addresses[i], Location: points[i], VertexIndex: len(line) - 1})
	}

	return &domain.Route{Polyline: line, Stops: stops}, nil
}
