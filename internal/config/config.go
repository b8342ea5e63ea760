package config

import (
	"fmt"
	"os"
	"route-weather-service/internal/domain"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Routing  RoutingConfig  `mapstructure:"routing"`
	Geocode  GeocodeConfig  `mapstructure:"geocode"`
	Weather  WeatherConfig  `mapstructure:"weather"`
	Sampling SamplingConfig `mapstructure:"sampling"`
	Outbound OutboundConfig `mapstructure:"outbound"`
	Database DatabaseConfig `mapstructure:"database"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RoutingConfig struct {
	Provider       string `mapstructure:"provider"` // ors | google
	ORSAPIKey      string `mapstructure:"ors_api_key"`
	ORSBaseURL     string `mapstructure:"ors_base_url"`
	ORSProfile     string `mapstructure:"ors_profile"`
	GeocodeCountry string `mapstructure:"geocode_country"`
	GoogleAPIKey   string `mapstructure:"google_api_key"`
}

type GeocodeConfig struct {
	Reverse      string  `mapstructure:"reverse"` // nominatim | google | chain
	NominatimURL string  `mapstructure:"nominatim_url"`
	UserAgent    string  `mapstructure:"user_agent"`
	NominatimRPS float64 `mapstructure:"nominatim_rps"`
}

type WeatherConfig struct {
	Mode          string        `mapstructure:"mode"` // zip | coordinates
	ZipServiceURL string        `mapstructure:"zip_service_url"`
	OpenMeteoURL  string        `mapstructure:"open_meteo_url"`
	Cache         string        `mapstructure:"cache"` // none | memory | redis
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	RedisURL      string        `mapstructure:"redis_url"`
}

type SamplingConfig struct {
	Unit             string  `mapstructure:"unit"`
	DefaultInterval  float64 `mapstructure:"default_interval"`
	MaxInterval      float64 `mapstructure:"max_interval"`
	StopEpsilonRatio float64 `mapstructure:"stop_epsilon_ratio"`
}

type OutboundConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// DistanceUnit returns the parsed sampling unit. Call after Validate.
func (s SamplingConfig) DistanceUnit() domain.DistanceUnit {
	u, _ := domain.ParseDistanceUnit(s.Unit)
	return u
}

// env names kept compatible with the deployment manifests.
var envBindings = map[string]string{
	"server.port":              "PORT",
	"server.request_timeout":   "REQUEST_TIMEOUT",
	"server.allowed_origins":   "ALLOWED_ORIGINS",
	"log.level":                "LOG_LEVEL",
	"log.format":               "LOG_FORMAT",
	"routing.provider":         "ROUTING_PROVIDER",
	"routing.ors_api_key":      "ORS_API_KEY",
	"routing.ors_base_url":     "ORS_BASE_URL",
	"routing.geocode_country":  "GEOCODE_COUNTRY",
	"routing.google_api_key":   "GOOGLE_MAPS_API_KEY",
	"geocode.reverse":          "REVERSE_GEOCODER",
	"geocode.nominatim_url":    "NOMINATIM_URL",
	"weather.mode":             "WEATHER_MODE",
	"weather.zip_service_url":  "WEATHER_API_URL",
	"weather.open_meteo_url":   "OPEN_METEO_URL",
	"weather.cache":            "WEATHER_CACHE",
	"weather.redis_url":        "REDIS_URL",
	"sampling.unit":            "DISTANCE_UNIT",
	"outbound.max_concurrency": "MAX_CONCURRENCY",
	"database.url":             "DATABASE_URL",
}

// Load reads configuration from defaults, an optional config file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("routing.provider", "ors")
	v.SetDefault("routing.ors_base_url", "https://api.openrouteservice.org")
	v.SetDefault("routing.ors_profile", "driving-car")
	v.SetDefault("routing.geocode_country", "US")
	v.SetDefault("geocode.reverse", "nominatim")
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "route_weather_planner")
	v.SetDefault("geocode.nominatim_rps", 1.0)
	v.SetDefault("weather.mode", "zip")
	v.SetDefault("weather.zip_service_url", "http://api:80")
	v.SetDefault("weather.open_meteo_url", "https://api.open-meteo.com")
	v.SetDefault("weather.cache", "none")
	v.SetDefault("weather.cache_ttl", 10*time.Minute)
	v.SetDefault("sampling.unit", "mi")
	v.SetDefault("sampling.default_interval", 10.0)
	v.SetDefault("sampling.max_interval", 100.0)
	v.SetDefault("sampling.stop_epsilon_ratio", 0.5)
	v.SetDefault("outbound.timeout", 10*time.Second)
	v.SetDefault("outbound.max_attempts", 4)
	v.SetDefault("outbound.initial_backoff", 200*time.Millisecond)
	v.SetDefault("outbound.max_backoff", 5*time.Second)
	v.SetDefault("outbound.max_concurrency", 6)
	v.SetDefault("outbound.rate_per_second", 10.0)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig()

	// Environment variables: ROUTEWEATHER_SAMPLING_UNIT -> sampling.unit,
	// plus the explicit names in envBindings.
	v.SetEnvPrefix("ROUTEWEATHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "ROUTEWEATHER_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that configuration fields are present and sane.
// Missing provider credentials are not errors; those providers are wired as unconfigured.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if c.Outbound.Timeout <= 0 {
		errs = append(errs, "outbound.timeout must be positive")
	}
	if c.Outbound.Timeout >= c.Server.RequestTimeout {
		errs = append(errs, "outbound.timeout must be shorter than server.request_timeout")
	}
	if c.Outbound.MaxAttempts < 1 {
		errs = append(errs, "outbound.max_attempts must be at least 1")
	}
	if c.Outbound.MaxConcurrency < 1 || c.Outbound.MaxConcurrency > 64 {
		errs = append(errs, fmt.Sprintf("outbound.max_concurrency must be 1-64, got %d", c.Outbound.MaxConcurrency))
	}

	switch c.Routing.Provider {
	case "ors", "google":
	default:
		errs = append(errs, fmt.Sprintf("routing.provider must be ors or google, got %q", c.Routing.Provider))
	}
	switch c.Geocode.Reverse {
	case "nominatim", "google", "chain":
	default:
		errs = append(errs, fmt.Sprintf("geocode.reverse must be nominatim, google or chain, got %q", c.Geocode.Reverse))
	}
	switch c.Weather.Mode {
	case "zip", "coordinates":
	default:
		errs = append(errs, fmt.Sprintf("weather.mode must be zip or coordinates, got %q", c.Weather.Mode))
	}
	switch c.Weather.Cache {
	case "none", "memory":
	case "redis":
		if c.Weather.RedisURL == "" {
			errs = append(errs, "weather.redis_url is required when weather.cache is redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("weather.cache must be none, memory or redis, got %q", c.Weather.Cache))
	}

	if _, err := domain.ParseDistanceUnit(c.Sampling.Unit); err != nil {
		errs = append(errs, "sampling.unit: "+err.Error())
	}
	if c.Sampling.MaxInterval <= 0 {
		errs = append(errs, "sampling.max_interval must be positive")
	}
	if c.Sampling.DefaultInterval <= 0 || c.Sampling.DefaultInterval > c.Sampling.MaxInterval {
		errs = append(errs, "sampling.default_interval must be positive and not above sampling.max_interval")
	}
	if c.Sampling.StopEpsilonRatio < 0 || c.Sampling.StopEpsilonRatio >= 1 {
		errs = append(errs, "sampling.stop_epsilon_ratio must be in [0, 1)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Get returns the environment variable key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
