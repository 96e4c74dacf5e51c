package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/metdata-explorer/internal/api/http"
	"github.com/i474232898/metdata-explorer/internal/config"
	"github.com/i474232898/metdata-explorer/internal/geocode"
	"github.com/i474232898/metdata-explorer/internal/journal"
	"github.com/i474232898/metdata-explorer/internal/logging"
	"github.com/i474232898/metdata-explorer/internal/scheduler"
	"github.com/i474232898/metdata-explorer/internal/store"
	"github.com/i474232898/metdata-explorer/internal/weather"
	"github.com/i474232898/metdata-explorer/internal/weather/transport"
)

const appName = "metdata-explorer"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.AppEnv, cfg.LogLevel, appName)
	slog.SetDefault(log)

	windowMin, windowMax, err := cfg.Defaults.Window()
	if err != nil {
		log.Error("invalid time window", "error", err)
		os.Exit(1)
	}

	// Shared HTTP client for the batch backend.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	backend := transport.NewClient(httpClient, cfg.BackendURL, transport.BreakerConfig{
		MaxFailures: cfg.BreakerFailures,
		Timeout:     cfg.BreakerTimeout,
	})

	// In-memory run history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	opts := []weather.Option{weather.WithLogger(log)}
	routeCfg := httpapi.RouteConfig{WindowMin: windowMin, WindowMax: windowMax}

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			log.Error("failed to open journal", "path", cfg.JournalPath, "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := j.Close(); err != nil {
				log.Error("journal close", "error", err)
			}
		}()
		opts = append(opts, weather.WithJournal(j))
		routeCfg.Submissions = j
	}

	if cfg.GeocoderAPIKey != "" {
		opts = append(opts, weather.WithGeocoder(geocode.NewGoogle(cfg.GeocoderAPIKey)))
	}

	initial := weather.NewState(cfg.Defaults.Locations, cfg.Defaults.Vars, cfg.Defaults.TimeWindow())
	service := weather.NewService(backend, memStore, initial, opts...)

	// Optional auto refresh of the current query.
	sched := scheduler.New(cfg.RefreshInterval, service, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// A query may take as long as the backend timeout.
		WriteTimeout: cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
			"backend": cfg.BackendURL,
		})
	})

	httpapi.RegisterRoutes(app, service, routeCfg)

	go func() {
		log.Info("http listening", "port", cfg.Port, "backend", cfg.BackendURL)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("shutting down")
}
