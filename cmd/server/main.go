package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"route-weather-service/internal/api"
	"route-weather-service/internal/config"
	"route-weather-service/internal/platform/logging"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

// main is the application composition root.
// It wires concrete adapters (ORS or Google, reverse geocoders, weather
// sources, caches) behind ports and starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found (using environment variables)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := wire(ctx, cfg)
	if err != nil {
		slog.Error("wire application", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	router := api.NewRouter(api.Deps{
		RouteWeather:   app.routeWeather,
		Weather:        app.weather,
		Readiness:      app.readiness,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         slog.Default(),
	})

	// Write timeout leaves room for a full pipeline run on cold caches.
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		slog.Error("server failed", "err", err)
		os.Exit(1)
	case sig := <-quit:
		slog.Info("shutdown signal received, draining connections", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	slog.Info("server stopped")
}
