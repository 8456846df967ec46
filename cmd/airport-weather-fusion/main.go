package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/airport-weather-fusion/internal/adapter/kafka"
	httpapi "github.com/i474232898/airport-weather-fusion/internal/api/http"
	"github.com/i474232898/airport-weather-fusion/internal/config"
	"github.com/i474232898/airport-weather-fusion/internal/observability"
	"github.com/i474232898/airport-weather-fusion/internal/scheduler"
	"github.com/i474232898/airport-weather-fusion/internal/store"
	"github.com/i474232898/airport-weather-fusion/internal/weather"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound source calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	clock := clockwork.NewRealClock()
	metrics := observability.NewMetrics()

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge, clock)

	// One feed per airport: its sources (with backoff + circuit breaker) and policy.
	feeds, err := cfg.BuildFeeds(httpClient)
	if err != nil {
		log.Fatalf("failed to build airport feeds: %v", err)
	}

	opts := []weather.Option{weather.WithClock(clock)}
	if len(cfg.KafkaBrokers) > 0 {
		writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer writer.Close()
		opts = append(opts, weather.WithPublisher(writer))
		log.Printf("INFO: publishing fused snapshots to %s", cfg.KafkaTopic)
	}

	// Core service orchestrating sources, fusion and store.
	service := weather.NewService(memStore, feeds, metrics, opts...)

	// Scheduler that periodically refreshes every airport.
	sched := scheduler.New(service, cfg.FetchInterval, cfg.FetchTimeout, metrics)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "airport-weather-fusion",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
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

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "airport-weather-fusion",
			"airports": len(feeds),
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
