package ports

import (
	"context"
	"route-weather-service/internal/domain"
)

// Contract for turning an ordered address list into a driving route.
type RouteProvider interface {
	// Return the route polyline and the polyline vertex of every address, in order.
	// Unresolvable addresses are reported as *domain.RouteResolutionError.
	PlanRoute(ctx context.Context, addresses []string, pref domain.RoutePreference) (*domain.Route, error)
}
