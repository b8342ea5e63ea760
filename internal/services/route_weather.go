package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/logging"
	"route-weather-service/internal/platform/obs"
	"route-weather-service/internal/ports"
	"slices"
	"strings"
)

// MaxAddresses is the largest number of stops accepted in one request.
const MaxAddresses = 25

type PlanRouteWeatherRequest struct {
	Addresses        []string
	IntervalDistance float64
	Preferences      domain.RoutePreference
}

// RouteWeatherService runs the route -> sample -> weather pipeline.
type RouteWeatherService struct {
	router      ports.RouteProvider
	sampler     *Sampler
	aggregator  *Aggregator
	maxInterval float64
}

func NewRouteWeatherService(
	router ports.RouteProvider,
	sampler *Sampler,
	aggregator *Aggregator,
	maxInterval float64,
) *RouteWeatherService {
	return &RouteWeatherService{
		router:      router,
		sampler:     sampler,
		aggregator:  aggregator,
		maxInterval: maxInterval,
	}
}

// Plan validates req, routes the addresses, samples the route and resolves
// weather for every sample point.
//
// Validation failures return *domain.ValidationError before any provider is
// called. Routing failures return *domain.RouteResolutionError, or an error
// wrapping domain.ErrNotConfigured when the routing provider has no usable
// credentials. Per-point weather failures never fail the call.
func (s *RouteWeatherService) Plan(ctx context.Context, req PlanRouteWeatherRequest) (_ *domain.RouteWeatherResult, err error) {
	defer obs.Time(ctx, "routeweather.Plan")(&err)

	addresses, err := ValidatePlanRequest(req, s.maxInterval)
	if err != nil {
		return nil, err
	}

	if req.Preferences.Reverse {
		slices.Reverse(addresses)
	}

	route, err := s.router.PlanRoute(ctx, addresses, req.Preferences)
	if err != nil {
		return nil, classifyRouteError(ctx, err)
	}

	points, err := s.sampler.Sample(route, req.IntervalDistance)
	if err != nil {
		return nil, fmt.Errorf("plan route weather: sample route: %w", err)
	}

	logging.FromContext(ctx).Info("route sampled",
		"stops", len(addresses),
		"vertices", len(route.Polyline),
		"points", len(points),
	)

	result, err := s.aggregator.Aggregate(ctx, points)
	if err != nil {
		return nil, fmt.Errorf("plan route weather: %w", err)
	}

	result.Unit = s.sampler.Unit()
	if n := len(points); n > 0 {
		result.TotalDistance = points[n-1].Distance
	}
	return result, nil
}

// ValidatePlanRequest checks req and returns the normalized address list.
func ValidatePlanRequest(req PlanRouteWeatherRequest, maxInterval float64) ([]string, error) {
	if len(req.Addresses) < 2 {
		return nil, &domain.ValidationError{Field: "addresses", Reason: "at least two addresses are required"}
	}
	if len(req.Addresses) > MaxAddresses {
		return nil, &domain.ValidationError{
			Field:  "addresses",
			Reason: fmt.Sprintf("at most %d addresses are allowed", MaxAddresses),
		}
	}

	addresses := make([]string, 0, len(req.Addresses))
	for i, a := range req.Addresses {
		norm := normalize(a)
		if norm == "" {
			return nil, &domain.ValidationError{
				Field:  fmt.Sprintf("addresses[%d]", i),
				Reason: "address must not be empty",
			}
		}
		addresses = append(addresses, norm)
	}

	iv := req.IntervalDistance
	if math.IsNaN(iv) || math.IsInf(iv, 0) || iv <= 0 {
		return nil, &domain.ValidationError{Field: "interval_distance", Reason: "must be a positive number"}
	}
	if maxInterval > 0 && iv > maxInterval {
		return nil, &domain.ValidationError{
			Field:  "interval_distance",
			Reason: fmt.Sprintf("must not exceed %g", maxInterval),
		}
	}

	return addresses, nil
}

// classifyRouteError keeps cancellation and configuration errors intact and
// reports everything else as a route resolution failure.
func classifyRouteError(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("plan route weather: %w", cerr)
	}
	if errors.Is(err, domain.ErrNotConfigured) {
		return fmt.Errorf("plan route weather: routing: %w", err)
	}
	var rre *domain.RouteResolutionError
	if errors.As(err, &rre) {
		return err
	}
	return &domain.RouteResolutionError{Err: err}
}

// normalize collapses whitespace so equal addresses compare equal.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
