package routing

import (
	"context"
	"fmt"
	"route-weather-service/internal/domain"
)

// Unconfigured stands in for a provider whose credentials are missing so the
// service can start and report the problem per request.
type Unconfigured struct {
	Reason string
}

func (u Unconfigured) PlanRoute(ctx context.Context, addresses []string, pref domain.RoutePreference) (*domain.Route, error) {
	return nil, fmt.Errorf("routing: %s: %w", u.Reason, domain.ErrNotConfigured)
}
