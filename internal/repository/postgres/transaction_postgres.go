package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"podtracker/internal/database"
	"podtracker/internal/model"
	"podtracker/internal/repository"
)

const pgUniqueViolation = "23505"

// TransactionPostgres is a PostgreSQL implementation of repository.TransactionRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type TransactionPostgres struct {
	db *sql.DB
}

// NewTransactionPostgres creates a new TransactionPostgres repository.
func NewTransactionPostgres(db *sql.DB) *TransactionPostgres {
	return &TransactionPostgres{db: db}
}

var _ repository.TransactionRepository = (*TransactionPostgres)(nil)

// WithTx begins a transaction, hands a LedgerTx bound to it to fn, and commits
// or rolls back depending on fn's result.
func (r *TransactionPostgres) WithTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	return database.InTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&ledgerTx{tx: tx})
	})
}

// ListLedger returns every transaction with product and retailer attributes,
// oldest effective date first.
func (r *TransactionPostgres) ListLedger(ctx context.Context) ([]model.LedgerEntry, error) {
	const q = `
		SELECT t.trx_id, s.product_name, r.retailer_name, COALESCE(r.division, ''),
		       t.status, t.quantity_changed, t.effective_date, t.log_timestamp,
		       t.user_id, t.source
		FROM transactions t
		JOIN skus s ON t.sku_id = s.id
		JOIN retailers r ON t.retailer_id = r.id
		ORDER BY t.effective_date, t.log_timestamp
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.LedgerEntry, 0)
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(
			&e.TrxID,
			&e.ProductName,
			&e.Retailer,
			&e.Division,
			&e.Status,
			&e.QuantityChanged,
			&e.EffectiveDate,
			&e.LogTimestamp,
			&e.UserID,
			&e.Source,
		); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ledgerTx implements repository.LedgerTx on top of *sql.Tx.
type ledgerTx struct {
	tx *sql.Tx
}

func (l *ledgerTx) LockItem(ctx context.Context, skuID, retailerID int64) error {
	const q = `SELECT pg_advisory_xact_lock($1::int, $2::int)`
	if _, err := l.tx.ExecContext(ctx, q, skuID, retailerID); err != nil {
		return fmt.Errorf("lock item %d/%d: %w", skuID, retailerID, err)
	}
	return nil
}

func (l *ledgerTx) TotalAsOf(ctx context.Context, skuID, retailerID int64, asOf model.Date) (int64, error) {
	const q = `
		SELECT COALESCE(SUM(quantity_changed), 0)
		FROM transactions
		WHERE sku_id = $1 AND retailer_id = $2 AND effective_date <= $3
	`
	var total int64
	if err := l.tx.QueryRowContext(ctx, q, skuID, retailerID, asOf).Scan(&total); err != nil {
		return 0, fmt.Errorf("total as of %s: %w", asOf, err)
	}
	return total, nil
}

func (l *ledgerTx) HasDuplicate(ctx context.Context, t *model.Transaction) (bool, error) {
	const q = `
		SELECT COUNT(*)
		FROM transactions
		WHERE sku_id = $1 AND retailer_id = $2 AND quantity_changed = $3 AND effective_date = $4
	`
	var n int
	if err := l.tx.QueryRowContext(ctx, q, t.SKUID, t.RetailerID, t.QuantityChanged, t.EffectiveDate).Scan(&n); err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return n > 0, nil
}

func (l *ledgerTx) Insert(ctx context.Context, t *model.Transaction) error {
	const q = `
		INSERT INTO transactions (trx_id, sku_id, retailer_id, status, quantity_changed,
		                          effective_date, log_timestamp, user_id, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := l.tx.ExecContext(ctx, q,
		t.TrxID,
		t.SKUID,
		t.RetailerID,
		string(t.Status),
		t.QuantityChanged,
		t.EffectiveDate,
		t.LogTimestamp,
		t.UserID,
		t.Source,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return repository.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert transaction %s: %w", t.TrxID, err)
	}
	return nil
}
