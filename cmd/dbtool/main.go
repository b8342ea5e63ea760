package main

import (
	"context"
	"log/slog"
	"os"
	"route-weather-service/internal/adapters/cache"
	"route-weather-service/internal/config"
	"route-weather-service/internal/platform/db"
	"route-weather-service/internal/platform/logging"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// dbtool prepares the Postgres geocode cache used by the ORS and Google route providers.
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found (using environment variables)")
	}
	logging.Setup(config.Get("LOG_LEVEL", "info"), config.Get("LOG_FORMAT", "text"))

	databaseURL := config.Get("DATABASE_URL", "")
	if strings.TrimSpace(databaseURL) == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sqlDB, err := db.Open(ctx, databaseURL)
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	slog.Info("initializing database schema")
	if err := cache.InitSchema(ctx, sqlDB); err != nil {
		slog.Error("schema initialization failed", "err", err)
		os.Exit(1)
	}
	slog.Info("schema ready")
}
