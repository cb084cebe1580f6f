package repository

import (
	"context"
	"errors"

	"podtracker/internal/model"
)

// ErrDuplicateTransaction is returned when a trx_id already exists.
var ErrDuplicateTransaction = errors.New("transaction already exists")

// MasterDataRepository reads the product and retailer catalogues.
type MasterDataRepository interface {
	// ListSKUs returns every SKU ordered by product name.
	ListSKUs(ctx context.Context) ([]model.SKU, error)

	// ListRetailers returns every retailer ordered by display name.
	ListRetailers(ctx context.Context) ([]model.Retailer, error)
}

// TransactionRepository defines data access for the POD ledger using SQL queries only.
// No business logic here; rules such as loss limits live in the service layer,
// which runs them inside WithTx.
type TransactionRepository interface {
	// WithTx runs fn inside a single database transaction. The transaction is
	// committed when fn returns nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error

	// ListLedger returns every transaction joined with product and retailer attributes.
	ListLedger(ctx context.Context) ([]model.LedgerEntry, error)
}

// LedgerTx is the set of ledger operations available inside a transaction.
type LedgerTx interface {
	// LockItem serializes writers of the same product/retailer pair until the transaction ends.
	LockItem(ctx context.Context, skuID, retailerID int64) error

	// TotalAsOf sums quantity_changed for the pair over rows effective on or before asOf.
	TotalAsOf(ctx context.Context, skuID, retailerID int64, asOf model.Date) (int64, error)

	// HasDuplicate reports whether a row with the same pair, quantity and effective date exists.
	HasDuplicate(ctx context.Context, t *model.Transaction) (bool, error)

	// Insert stores a transaction row.
	Insert(ctx context.Context, t *model.Transaction) error
}
