package services

import (
	"context"
	"errors"
	"fmt"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/httpx"
	"route-weather-service/internal/platform/logging"
	"route-weather-service/internal/platform/obs"
	"route-weather-service/internal/ports"

	"golang.org/x/sync/errgroup"
)

// Resolution is what a WeatherResolver learned about one point.
// PostalCode may be set even when resolving the weather itself failed.
type Resolution struct {
	PostalCode *string
	Weather    domain.WeatherRecord
}

// WeatherResolver resolves the weather at a single sample point.
type WeatherResolver interface {
	Resolve(ctx context.Context, p domain.SamplePoint) (Resolution, error)
}

// ZipCodeResolver reverse-geocodes the point to a postal code and asks the
// weather-by-zip service for that code.
type ZipCodeResolver struct {
	Postal  ports.PostalResolver
	Weather ports.ZipWeatherClient
}

func (r *ZipCodeResolver) Resolve(ctx context.Context, p domain.SamplePoint) (Resolution, error) {
	place, err := r.Postal.ResolvePostal(ctx, p.Location)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve postal code at %s: %w", p.Location, err)
	}

	zip := place.PostalCode
	res := Resolution{PostalCode: &zip}

	cond, err := r.Weather.WeatherByZip(ctx, zip)
	if err != nil {
		return res, fmt.Errorf("weather for zip %s: %w", zip, err)
	}

	res.Weather = recordFrom(cond)
	if res.Weather.CountryCode == nil && place.CountryCode != "" {
		cc := place.CountryCode
		res.Weather.CountryCode = &cc
	}
	return res, nil
}

// CoordinateResolver asks a coordinate-addressed weather source directly,
// skipping the reverse geocoding round trip.
type CoordinateResolver struct {
	Weather ports.CoordinateWeatherClient
}

func (r *CoordinateResolver) Resolve(ctx context.Context, p domain.SamplePoint) (Resolution, error) {
	cond, err := r.Weather.WeatherAt(ctx, p.Location)
	if err != nil {
		return Resolution{}, fmt.Errorf("weather at %s: %w", p.Location, err)
	}
	return Resolution{Weather: recordFrom(cond)}, nil
}

func recordFrom(c ports.Conditions) domain.WeatherRecord {
	return domain.WeatherRecord{
		TemperatureCelsius: c.TemperatureC,
		ConditionSummary:   c.Summary,
		CountryCode:        c.Country,
	}
}

// Aggregator resolves weather for every sample point with bounded parallelism.
type Aggregator struct {
	resolver       WeatherResolver
	maxConcurrency int
}

func NewAggregator(resolver WeatherResolver, maxConcurrency int) *Aggregator {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Aggregator{resolver: resolver, maxConcurrency: maxConcurrency}
}

// Aggregate resolves every point independently and returns them in input order.
//
// A point whose lookup fails keeps its location and postal code (when known)
// and gets an empty WeatherRecord; it is counted in DegradedPoints. Only
// cancellation of ctx aborts the whole call, in which case nothing partial is
// returned.
func (a *Aggregator) Aggregate(ctx context.Context, points []domain.SamplePoint) (_ *domain.RouteWeatherResult, err error) {
	defer obs.Time(ctx, "aggregator.Aggregate")(&err)

	log := logging.FromContext(ctx)

	results := make([]domain.PointWeather, len(points))
	reasons := make([]string, len(points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrency)

	for i, p := range points {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := a.resolver.Resolve(gctx, p)

			point := p
			point.PostalCode = res.PostalCode

			if err != nil {
				// Request cancellation is fatal; everything else only degrades this point.
				if cerr := ctx.Err(); cerr != nil {
					return cerr
				}
				reasons[i] = degradeReason(err)
				log.Warn("weather lookup degraded",
					"seq", p.SequenceIndex,
					"lat", p.Location.Lat,
					"lon", p.Location.Lon,
					"reason", reasons[i],
					"err", err,
				)
				results[i] = domain.PointWeather{Point: point}
				return nil
			}

			results[i] = domain.PointWeather{Point: point, Weather: res.Weather}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate weather: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregate weather: %w", err)
	}

	degraded := 0
	for _, r := range reasons {
		if r == "" {
			continue
		}
		degraded++
		obs.DegradedPoints.WithLabelValues(r).Inc()
	}

	if degraded > 0 {
		log.Info("route weather partially degraded",
			"points", len(points),
			"degraded", degraded,
		)
	}

	return &domain.RouteWeatherResult{
		Points:         results,
		DegradedPoints: degraded,
	}, nil
}

func degradeReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotConfigured) || httpx.IsAuthError(err):
		return "not_configured"
	case errors.Is(err, domain.ErrNotFound) || httpx.StatusCode(err) == 404:
		return "not_found"
	case httpx.IsTimeout(err):
		return "timeout"
	default:
		return "upstream"
	}
}
