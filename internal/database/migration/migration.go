package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// lockKey identifies the session advisory lock held while migrating and seeding.
const lockKey int64 = 0x706f64 // "pod"

// Conn is the part of *sql.DB and *sql.Conn that migrations and seeding use.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_skus",
		SQL: `CREATE TABLE IF NOT EXISTS skus (
  id           SERIAL PRIMARY KEY,
  product_name TEXT   NOT NULL UNIQUE,
  sku_id       TEXT   NOT NULL UNIQUE
);`,
	},
	{
		Name: "create_table_retailers",
		SQL: `CREATE TABLE IF NOT EXISTS retailers (
  id            SERIAL PRIMARY KEY,
  retailer_key  TEXT   NOT NULL UNIQUE,
  retailer_name TEXT   NOT NULL,
  division      TEXT
);`,
	},
	{
		Name: "create_table_transactions",
		SQL: `CREATE TABLE IF NOT EXISTS transactions (
  trx_id           TEXT      PRIMARY KEY,
  sku_id           INTEGER   NOT NULL REFERENCES skus(id),
  retailer_id      INTEGER   NOT NULL REFERENCES retailers(id),
  status           TEXT      NOT NULL,
  quantity_changed INTEGER   NOT NULL,
  effective_date   DATE      NOT NULL,
  log_timestamp    TIMESTAMP NOT NULL,
  user_id          TEXT      NOT NULL,
  source           TEXT      NOT NULL
);`,
	},
	{
		Name: "create_index_transactions_item_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_transactions_item_date ON transactions (sku_id, retailer_id, effective_date);`,
	},
	{
		Name: "create_index_transactions_effective_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_transactions_effective_date ON transactions (effective_date);`,
	},
}

// EnsureMigrated checks if the 'transactions' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db Conn, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Send()

	var exists bool
	query := "SELECT to_regclass('public.transactions') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().
			Str("event", "db_migration_failed").
			Str("status", "error").
			Err(err).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("event", "db_migration_start").Str("status", "in_progress").Send()

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Err(err).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Send()
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Send()
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Send()

	return nil
}

// Prepare migrates and seeds the database while holding a session advisory lock
// on one pooled connection, so processes starting together run it one at a time.
func Prepare(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	start := time.Now()
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", lockKey); err != nil {
			log.Warn().Err(err).Str("component", "database").Str("event", "db_migration_unlock_failed").Send()
		}
	}()
	log.Info().
		Str("component", "database").
		Str("event", "db_migration_lock").
		Int64("wait_ms", time.Since(start).Milliseconds()).
		Send()

	if err := EnsureMigrated(ctx, conn, log, dbHost); err != nil {
		return err
	}
	return Seed(ctx, conn, log)
}
