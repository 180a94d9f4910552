// Package main is the entry point for the Hearth hub.
//
// It loads configuration, wires the configured platforms (Z-Wave garage
// door, Forecast weather sensors) into the entity hub, optionally connects
// the PostgreSQL recorder, starts the polling cycle, and serves the HTTP
// API until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"hearth/internal/api"
	"hearth/internal/config"
	"hearth/internal/forecast"
	"hearth/internal/garagedoor"
	"hearth/internal/hub"
	"hearth/internal/recorder"
	"hearth/internal/types"
	"hearth/internal/zwave"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("hearth starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"poll_interval", cfg.PollInterval.String(),
	)

	clock := types.RealClock{}

	// Recorder is optional: no database URL, no history.
	var rec *recorder.Recorder
	if url := cfg.Recorder.DatabaseURL.Unmask(); url != "" {
		pool, err := pgxpool.New(context.Background(), url)
		if err != nil {
			return fmt.Errorf("connecting recorder database: %w", err)
		}
		defer pool.Close()

		rec = recorder.New(pool, cfg.Recorder.ArchiveDir, clock, logger)
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		err = rec.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("preparing recorder schema: %w", err)
		}
		logger.Info("recorder enabled", "keep_days", cfg.Recorder.KeepDays)
	}

	var writer hub.StateWriter
	var history api.HistoryProvider
	if rec != nil {
		writer = rec
		history = rec
	}
	h := hub.New(writer, clock, logger)

	if err := setupPlatforms(cfg, h, clock, logger); err != nil {
		return err
	}

	if err := h.Start(cfg.PollInterval); err != nil {
		return fmt.Errorf("starting polling cycle: %w", err)
	}
	defer h.Stop()

	// Daily history purge, only with a recorder attached.
	maintenance := gocron.NewScheduler(time.UTC)
	if rec != nil {
		_, err := maintenance.Every(24).Hours().Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
			defer cancel()
			if _, err := rec.Purge(ctx, cfg.Recorder.KeepDays); err != nil {
				logger.Error("history purge failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("scheduling history purge: %w", err)
		}
		maintenance.StartAsync()
		defer maintenance.Stop()
	}

	srv := api.NewServer(h, history, cfg.Server.APIPasswordHash, logger)
	return serveHTTP(cfg, srv, logger)
}

// setupPlatforms wires each configured platform into the hub. Unconfigured
// platforms are skipped with a log line instead of failing startup, so a
// garage-door-only or weather-only deployment works out of the box.
func setupPlatforms(cfg *config.Config, h *hub.Hub, clock types.Clock, logger *slog.Logger) error {
	if cfg.ZWave.Simulate {
		network := zwave.NewMemoryNetwork()
		network.AddValue(zwave.Value{
			ID:           zwave.ValueID(cfg.ZWave.DoorValueID),
			NodeID:       zwave.NodeID(cfg.ZWave.DoorNodeID),
			CommandClass: zwave.CommandClassSwitchBinary,
			Index:        0,
			Data:         true,
		})
		garagedoor.SetupPlatform(network, &zwave.DiscoveryInfo{
			NodeID:  zwave.NodeID(cfg.ZWave.DoorNodeID),
			ValueID: zwave.ValueID(cfg.ZWave.DoorValueID),
		}, h.AddEntities, h.RequestRefresh, logger)
		logger.Info("z-wave simulation enabled", "door_node", cfg.ZWave.DoorNodeID)
	} else {
		logger.Warn("no z-wave radio driver wired; garage door platform skipped")
	}

	if cfg.Forecast.APIKey.Unmask() == "" {
		logger.Info("forecast API key not set; weather platform skipped")
		return nil
	}

	client := forecast.NewClient(
		&http.Client{Timeout: 15 * time.Second},
		cfg.Forecast.BaseURL,
		cfg.Forecast.APIKey,
	)
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := forecast.SetupPlatform(ctx, cfg, client, clock, h.AddEntities, logger); err != nil {
		return fmt.Errorf("forecast platform setup: %w", err)
	}
	return nil
}

// serveHTTP runs the API server until a shutdown signal arrives, then drains
// in-flight requests.
func serveHTTP(cfg *config.Config, srv *api.Server, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("hub stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
