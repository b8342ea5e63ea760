package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"route-weather-service/internal/adapters/cache"
	"route-weather-service/internal/adapters/geocode"
	"route-weather-service/internal/adapters/routing"
	"route-weather-service/internal/adapters/weather"
	"route-weather-service/internal/api/handlers"
	"route-weather-service/internal/config"
	"route-weather-service/internal/platform/db"
	"route-weather-service/internal/platform/httpx"
	"route-weather-service/internal/ports"
	"route-weather-service/internal/services"
	"time"

	"github.com/redis/go-redis/v9"
)

// postalMemoTTL bounds how long a reverse geocode answer is reused.
const postalMemoTTL = 24 * time.Hour

type application struct {
	routeWeather *handlers.RouteWeatherHandler
	weather      *handlers.WeatherHandler
	readiness    *handlers.ReadinessHandler

	sqlDB *sql.DB
	rdb   *redis.Client
}

func (a *application) Close() {
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

func wire(ctx context.Context, cfg *config.Config) (*application, error) {
	app := &application{}
	var checks []handlers.Check

	policy := httpx.Policy{
		MaxAttempts:    cfg.Outbound.MaxAttempts,
		InitialBackoff: cfg.Outbound.InitialBackoff,
		MaxBackoff:     cfg.Outbound.MaxBackoff,
		Multiplier:     2,
	}
	newClient := func(name string, rps float64) *httpx.Client {
		burst := int(rps)
		return httpx.New(name,
			httpx.WithTimeout(cfg.Outbound.Timeout),
			httpx.WithPolicy(policy),
			httpx.WithRateLimit(rps, burst),
		)
	}

	// Forward geocode cache is optional; without Postgres every address is geocoded.
	var geocodeCache ports.GeocodeCache
	if cfg.Database.URL != "" {
		sqlDB, err := db.Open(ctx, cfg.Database.URL)
		if err != nil {
			slog.Warn("geocode cache disabled", "err", err)
		} else {
			app.sqlDB = sqlDB
			gc := cache.NewSQLGeocodeCache(sqlDB)
			geocodeCache = gc
			checks = append(checks, handlers.Check{Name: "postgres", Probe: gc.Ping})
		}
	}

	router, routingErr := buildRouteProvider(cfg, newClient, geocodeCache)
	if routingErr != nil {
		slog.Warn("routing provider not configured", "provider", cfg.Routing.Provider, "err", routingErr)
	}
	checks = append(checks, handlers.Check{
		Name:  "routing",
		Probe: func(context.Context) error { return routingErr },
	})

	zipClient := ports.ZipWeatherClient(weather.NewZipClient(newClient("weather_zip", cfg.Outbound.RatePerSecond), cfg.Weather.ZipServiceURL))
	switch cfg.Weather.Cache {
	case "memory":
		zipClient = weather.NewCachedZipClient(zipClient, cache.NewMemoryWeatherCache(cfg.Weather.CacheTTL), cfg.Weather.CacheTTL)
	case "redis":
		rdb, err := cache.OpenRedis(ctx, cfg.Weather.RedisURL)
		if err != nil {
			slog.Warn("redis weather cache disabled", "err", err)
			break
		}
		app.rdb = rdb
		rc := cache.NewRedisWeatherCache(rdb)
		zipClient = weather.NewCachedZipClient(zipClient, rc, cfg.Weather.CacheTTL)
		checks = append(checks, handlers.Check{Name: "redis", Probe: rc.Ping})
	}

	var resolver services.WeatherResolver
	switch cfg.Weather.Mode {
	case "coordinates":
		resolver = &services.CoordinateResolver{
			Weather: weather.NewOpenMeteo(newClient("open_meteo", cfg.Outbound.RatePerSecond), cfg.Weather.OpenMeteoURL),
		}
	default:
		postal, err := buildPostalResolver(cfg, newClient)
		if err != nil {
			return nil, err
		}
		resolver = &services.ZipCodeResolver{Postal: postal, Weather: zipClient}
	}

	svc := services.NewRouteWeatherService(
		router,
		services.NewSampler(cfg.Sampling.DistanceUnit(), cfg.Sampling.StopEpsilonRatio),
		services.NewAggregator(resolver, cfg.Outbound.MaxConcurrency),
		cfg.Sampling.MaxInterval,
	)

	app.routeWeather = &handlers.RouteWeatherHandler{
		Planner:         svc,
		DefaultInterval: cfg.Sampling.DefaultInterval,
		RequestTimeout:  cfg.Server.RequestTimeout,
	}
	app.weather = &handlers.WeatherHandler{Weather: zipClient, ServiceURL: cfg.Weather.ZipServiceURL}
	app.readiness = &handlers.ReadinessHandler{Checks: checks}

	return app, nil
}

type clientFactory func(name string, rps float64) *httpx.Client

// buildRouteProvider returns the configured provider, or an Unconfigured
// stand-in plus the reason when its key is missing.
func buildRouteProvider(cfg *config.Config, newClient clientFactory, geocodeCache ports.GeocodeCache) (ports.RouteProvider, error) {
	switch cfg.Routing.Provider {
	case "google":
		p, err := routing.NewGoogleRouteProvider(routing.GoogleConfig{
			APIKey: cfg.Routing.GoogleAPIKey,
			Region: cfg.Routing.GeocodeCountry,
		}, newClient("google", cfg.Outbound.RatePerSecond), geocodeCache)
		if err != nil {
			return routing.Unconfigured{Reason: "GOOGLE_MAPS_API_KEY is not set"}, err
		}
		return p, nil
	default:
		p, err := routing.NewORSRouteProvider(routing.ORSConfig{
			APIKey:  cfg.Routing.ORSAPIKey,
			BaseURL: cfg.Routing.ORSBaseURL,
			Profile: cfg.Routing.ORSProfile,
			Country: cfg.Routing.GeocodeCountry,
		}, newClient("ors", cfg.Outbound.RatePerSecond), geocodeCache)
		if err != nil {
			return routing.Unconfigured{Reason: "ORS_API_KEY is not set"}, err
		}
		return p, nil
	}
}

// buildPostalResolver wires the reverse geocoder. Google is only used when a
// key is present; without one "google" and "chain" fall back to Nominatim.
func buildPostalResolver(cfg *config.Config, newClient clientFactory) (ports.PostalResolver, error) {
	nominatim := geocode.NewNominatim(
		newClient("nominatim", cfg.Geocode.NominatimRPS),
		cfg.Geocode.NominatimURL,
		cfg.Geocode.UserAgent,
	)

	var google *geocode.Google
	if cfg.Geocode.Reverse != "nominatim" {
		if cfg.Routing.GoogleAPIKey == "" {
			slog.Warn("GOOGLE_MAPS_API_KEY is not set, reverse geocoding with nominatim only", "reverse", cfg.Geocode.Reverse)
		} else {
			client := newClient("google_reverse", cfg.Outbound.RatePerSecond)
			mc, err := routing.NewMapsClient(cfg.Routing.GoogleAPIKey, "", client)
			if err != nil {
				return nil, fmt.Errorf("reverse geocoder: %w", err)
			}
			google = geocode.NewGoogle(mc, client)
		}
	}

	var resolver ports.PostalResolver
	switch {
	case google == nil:
		resolver = nominatim
	case cfg.Geocode.Reverse == "google":
		resolver = google
	case cfg.Geocode.Reverse == "chain":
		resolver = geocode.NewChain(
			geocode.Named{Name: "google", Resolver: google},
			geocode.Named{Name: "nominatim", Resolver: nominatim},
		)
	default:
		return nil, errors.New("reverse geocoder: unknown mode " + cfg.Geocode.Reverse)
	}

	return geocode.NewMemo(resolver, postalMemoTTL), nil
}
