package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"

	"podtracker/internal/client"
	"podtracker/internal/config"
	"podtracker/internal/logger"
	"podtracker/internal/otel"
	"podtracker/internal/ui"
)

const localAPI = "http://127.0.0.1:8000"

func main() {
	cfg := config.LoadUI()
	log := logger.New(cfg.Env, cfg.LogLevel, "pod-ui")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, "pod-ui", log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	var app *fiber.App
	cfgErr := cfg.Validate()
	switch {
	case cfg.APIKey == "":
		reason := "API_KEY is not set. The UI cannot function."
		log.Error().Str("event", "missing_api_key").Msg(reason)
		app = ui.Unavailable(reason, log)
	case cfgErr != nil:
		log.Error().Err(cfgErr).Str("event", "invalid_config").Msg("invalid configuration")
		app = ui.Unavailable("Invalid configuration: "+cfgErr.Error(), log)
	default:
		if cfg.APIBaseURL == localAPI {
			log.Warn().Str("event", "local_api").Msg("Running against local API. Ensure the api service is running.")
		}
		api := client.New(client.Config{
			BaseURL:       cfg.APIBaseURL,
			APIKey:        cfg.APIKey,
			Timeout:       cfg.RequestTimeout,
			MasterDataTTL: cfg.MasterDataTTL,
			SummaryTTL:    cfg.SummaryTTL,
		})
		app = ui.New(api, ui.Options{
			TemplateDir:    cfg.TemplateDir,
			TemplateReload: cfg.TemplateReload,
			LocalAPI:       cfg.APIBaseURL == localAPI,
			Logger:         log,
		})
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown")
		}
	}()

	addr := "0.0.0.0:" + cfg.Port
	log.Info().Str("event", "listening").Str("addr", addr).Str("api_base_url", cfg.APIBaseURL).Send()
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
