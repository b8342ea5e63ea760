package routing

import (
	"context"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/logging"
	"route-weather-service/internal/ports"
)

type geocodeFunc func(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)

// resolveCoordinates returns coordinates for every normalized address,
// consulting cache before calling geocode for the misses. Cache failures are
// logged and otherwise ignored. cache may be nil.
func resolveCoordinates(
	ctx context.Context,
	cache ports.GeocodeCache,
	addresses []string,
	geocode geocodeFunc,
) (map[string]domain.Coordinates, error) {
	log := logging.FromContext(ctx)

	hits := make(map[string]domain.Coordinates)
	if cache != nil {
		cached, err := cache.GetMany(ctx, addresses)
		if err != nil {
			log.Warn("geocode cache read failed", "err", err)
		} else {
			hits = cached
		}
	}

	misses := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if _, ok := hits[a]; !ok {
			misses = append(misses, a)
		}
	}

	if len(misses) == 0 {
		return hits, nil
	}

	fresh, err := geocode(ctx, misses)
	if err != nil {
		return nil, err
	}

	if cache != nil && len(fresh) > 0 {
		if err := cache.PutMany(ctx, fresh); err != nil {
			log.Warn("geocode cache write failed", "err", err)
		}
	}

	out := make(map[string]domain.Coordinates, len(hits)+len(fresh))
	for k, v := range hits {
		out[k] = v
	}
	for k, v := range fresh {
		out[k] = v
	}
	return out, nil
}

// samePlace reports whether every point lies within a metre of the first.
func samePlace(points []domain.Coordinates) bool {
	for _, p := range points[1:] {
		if domain.HaversineMeters(points[0], p) > 1 {
			return false
		}
	}
	return true
}

// singlePointRoute is the degenerate route for stops that share one location.
func singlePointRoute(addresses []string, at domain.Coordinates) *domain.Route {
	stops := make([]domain.RouteStop, len(addresses))
	for i, a := range addresses {
		stops[i] = domain.RouteStop{Address: a, Location: at, VertexIndex: 0}
	}
	return &domain.Route{Polyline: domain.Polyline{at}, Stops: stops}
}
