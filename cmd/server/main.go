// Package main is the entry point for the subitem timeline widget server.
// It loads configuration, connects the optional Redis store and MariaDB
// audit trail, wires the widget, and starts the HTTP server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	// Viewer timezones are resolved by name; the image may lack zoneinfo.
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/subtimeline/internal/app"
	"github.com/keyxmakerx/subtimeline/internal/config"
	"github.com/keyxmakerx/subtimeline/internal/database"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Load Configuration ---
	if n, err := config.LoadDotEnv(".env.local", ".env"); err != nil {
		return err
	} else if n > 0 {
		slog.Debug("loaded .env files", slog.Int("count", n))
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	slog.Info("starting subitem timeline widget",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("store", cfg.Widget.StoreBackend),
		slog.Bool("audit", cfg.AuditEnabled),
	)

	// --- Connect to Redis (shared view-session store) ---
	var rdb *redis.Client
	if cfg.Widget.StoreBackend == config.StoreRedis {
		rdb, err = database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		slog.Info("connected to Redis")
	}

	// --- Connect to MariaDB (save audit trail) ---
	var db *sql.DB
	if cfg.AuditEnabled {
		db, err = database.NewMariaDB(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("connected to MariaDB")

		if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
			return err
		}
	}

	// --- Create Application ---
	application, err := app.New(cfg, db, rdb)
	if err != nil {
		return err
	}
	if err := application.RegisterRoutes(ctx); err != nil {
		return err
	}

	// --- Graceful Shutdown ---
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Echo.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// setupLogging configures the global slog logger. Development uses text
// format for readability; production uses JSON for log aggregation.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// parseLevel maps LOG_LEVEL to a slog level, defaulting to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
