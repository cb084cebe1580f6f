package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"podtracker/internal/app"
	"podtracker/internal/config"
	handlers "podtracker/internal/http/handler"
	"podtracker/internal/http/middleware"
	"podtracker/internal/logger"
	"podtracker/internal/otel"
)

// @title CPG POD Tracker API
// @version 1.2.0
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel, "pod-api")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.UsingDefaultAPIKey() {
		log.Warn().Str("event", "default_api_key").Msg("API_KEY is not set; using the development key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "pod-api", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svcs, err := app.Open(ctx, cfg, log, reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer svcs.Close()

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg, "/healthz")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	server := fiber.New(fiber.Config{
		AppName:      "pod-api",
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    32 * 1024 * 1024,
	})

	// Register global middleware
	server.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	server.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	server.Use(middleware.Logger(log))
	server.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(server, handlers.Deps{
		DB:           svcs.DB,
		Transactions: svcs.Transactions,
		Reports:      svcs.Reports,
		Chat:         svcs.Chat,
		APIKey:       cfg.APIKey,
		Gatherer:     reg,
		Logger:       log,
	})

	go func() {
		<-ctx.Done()
		log.Info().Str("event", "shutdown").Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown")
		}
	}()

	addr := "0.0.0.0:" + cfg.Port
	log.Info().Str("event", "listening").Str("addr", addr).Send()
	if err := server.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
