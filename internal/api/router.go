package api

import (
	"log/slog"
	"net/http"
	"route-weather-service/internal/api/handlers"
	"route-weather-service/internal/platform/obs"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Deps are the handlers and settings the router serves.
type Deps struct {
	RouteWeather   *handlers.RouteWeatherHandler
	Weather        *handlers.WeatherHandler
	Readiness      *handlers.ReadinessHandler
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(handlers.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handlers.MethodNotAllowed)
	r.Use(routeTemplateMiddleware)

	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	if d.Readiness != nil {
		r.HandleFunc("/ready", d.Readiness.Ready).Methods(http.MethodGet)
	}
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	// /get_route_weather is the path the planner UI posts to.
	r.HandleFunc("/api/route-weather", d.RouteWeather.Plan).Methods(http.MethodPost)
	r.HandleFunc("/get_route_weather", d.RouteWeather.Plan).Methods(http.MethodPost)

	if d.Weather != nil {
		r.HandleFunc("/weather/{zip}", d.Weather.ByZip).Methods(http.MethodGet)
		r.HandleFunc("/test-weather-connection", d.Weather.TestConnection).Methods(http.MethodGet)
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         86400,
	})

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var h http.Handler = r
	h = recoverMiddleware(h)
	h = loggingMiddleware(h)
	h = requestIDMiddleware(logger)(h)
	return c.Handler(h)
}
