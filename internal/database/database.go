// Package database opens the ledger's PostgreSQL pool and provides the
// transaction helper shared by the repositories and the seeder.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"podtracker/internal/config"
)

var sqlOpen = sql.Open

// Startup retry policy. Postgres usually comes up after the API container.
var (
	connectAttempts  = 10
	connectRetryWait = 2 * time.Second
)

// DSN returns the pgx connection string for c. A full connection string in
// c.URL (a pooler URL, say) wins over the individual fields.
func DSN(c config.DatabaseConfig) (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.Host == "" || c.Port == "" || c.User == "" || c.Name == "" {
		return "", fmt.Errorf("invalid database config: DB_CONNECTION_STRING or DB_HOST, DB_PORT, DB_USER and DB_NAME are required")
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + c.Port,
		Path:   c.Name,
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String(), nil
}

// Target describes the database for logs without leaking credentials.
func Target(c config.DatabaseConfig) string {
	if c.URL != "" {
		u, err := url.Parse(c.URL)
		if err != nil || u.Host == "" {
			return "connection_string"
		}
		return u.Host + u.Path
	}
	return c.Host + ":" + c.Port + "/" + c.Name
}

// NewPostgres opens a traced pgx pool, applies the pool limits and waits for the
// server to answer a ping, retrying while it starts up.
func NewPostgres(ctx context.Context, c config.DatabaseConfig, log zerolog.Logger) (*sql.DB, error) {
	dsn, err := DSN(c)
	if err != nil {
		return nil, err
	}

	driverName, err := otelsql.Register("pgx",
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSQLCommenter(true),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}

	log = log.With().Str("component", "database").Str("db_target", Target(c)).Logger()
	start := time.Now()
	for attempt := 1; ; attempt++ {
		err = ping(ctx, db)
		if err == nil {
			break
		}
		if attempt >= connectAttempts {
			_ = db.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		log.Warn().Err(err).Str("event", "db_connect_retry").Int("attempt", attempt).Send()
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("db ping: %w", ctx.Err())
		case <-time.After(connectRetryWait):
		}
	}

	log.Info().Str("event", "db_connected").Int64("duration_ms", time.Since(start).Milliseconds()).Send()
	return db, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// TxBeginner starts transactions. *sql.DB and *sql.Conn both satisfy it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// InTx runs fn inside a transaction, committing when fn succeeds and rolling
// back otherwise. fn's error is returned unchanged.
func InTx(ctx context.Context, db TxBeginner, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w; rollback failed: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
