// Package app assembles the ledger services from configuration. It is shared
// by the API server and the podctl CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"podtracker/internal/config"
	"podtracker/internal/database"
	"podtracker/internal/database/migration"
	"podtracker/internal/llm"
	"podtracker/internal/repository/postgres"
	"podtracker/internal/service"
	"podtracker/internal/storage"
)

// Services are the wired ledger services and the resources behind them.
type Services struct {
	DB           *sql.DB
	Transactions service.TransactionService
	Reports      service.ReportService
	Chat         service.ChatService
}

// Close releases the database pool.
func (s *Services) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Open connects to PostgreSQL, migrates and seeds it, connects object storage
// and the LLM backend, and wires the services. Missing object storage or LLM
// settings disable archiving or chat instead of failing. reg may be nil.
func Open(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger, reg prometheus.Registerer) (*Services, error) {
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := migration.Prepare(ctx, db, log, database.Target(cfg.Database)); err != nil {
		_ = db.Close()
		return nil, err
	}

	store, err := storage.New(ctx, cfg.MinIO)
	if err != nil {
		log.Warn().Err(err).Str("component", "storage").Str("event", "storage_disabled").Send()
		store = storage.Disabled()
	} else if !cfg.MinIO.Enabled() {
		log.Info().Str("component", "storage").Str("event", "storage_disabled").Msg("MINIO_ENDPOINT not set")
	}

	var completer service.Completer
	client, err := llm.New(cfg.LLM)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		log.Warn().Str("component", "chat").Str("event", "chat_disabled").Msg("OPENAI_API_KEY not set")
	case err != nil:
		_ = db.Close()
		return nil, fmt.Errorf("create llm client: %w", err)
	default:
		completer = client
		log.Info().Str("component", "chat").Str("event", "chat_enabled").Str("model", client.Model()).Send()
	}

	opts := service.Options{
		FuzzyThreshold: cfg.FuzzyThreshold,
		Location:       cfg.Location(),
		Logger:         log,
	}
	if reg != nil {
		m, err := service.NewMetrics(reg)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		opts.Metrics = m
	}

	return Wire(db, store, completer, opts), nil
}

// Wire builds the services over an open database.
func Wire(db *sql.DB, store storage.Storage, completer service.Completer, opts service.Options) *Services {
	masterRepo := postgres.NewMasterDataPostgres(db)
	trxRepo := postgres.NewTransactionPostgres(db)

	return &Services{
		DB:           db,
		Transactions: service.NewTransactionService(masterRepo, trxRepo, store, opts),
		Reports:      service.NewReportService(trxRepo, store, opts),
		Chat:         service.NewChatService(completer, trxRepo, opts),
	}
}
