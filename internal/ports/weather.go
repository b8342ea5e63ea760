package ports

import (
	"context"
	"route-weather-service/internal/domain"
	"time"
)

// Conditions returned by a weather source. Nil fields were not reported.
type Conditions struct {
	TemperatureC *float64 `json:"temperatureC"`
	Summary      *string  `json:"summary"`
	Country      *string  `json:"country"`
}

// Contract for the weather-by-zip collaborator.
type ZipWeatherClient interface {
	WeatherByZip(ctx context.Context, zip string) (Conditions, error)
}

// Contract for a weather source addressed by coordinates.
type CoordinateWeatherClient interface {
	WeatherAt(ctx context.Context, c domain.Coordinates) (Conditions, error)
}

// Short-lived cache for zip weather lookups.
type WeatherCache interface {
	// Return the cached conditions and whether they were present.
	Get(ctx context.Context, zip string) (Conditions, bool, error)
	Set(ctx context.Context, zip string, c Conditions, ttl time.Duration) error
}
