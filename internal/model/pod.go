package model

import "time"

// Status is the stored state of a ledger transaction.
type Status string

const (
	// StatusPlanned is a gain whose effective date is still in the future.
	StatusPlanned Status = "planned"
	// StatusLive is a gain that is already effective.
	StatusLive Status = "live"
	// StatusLost is a loss of distribution.
	StatusLost Status = "lost"
)

// Intent values accepted from clients.
const (
	IntentPlanned = "planned"
	IntentLost    = "lost"
)

// Sources recorded on transactions.
const (
	SourceAPI    = "api_single"
	SourceUIForm = "ui_form"
	SourceBulk   = "bulk_upload"
	SourceCLI    = "cli"
)

// SKU is a product that can be distributed.
type SKU struct {
	ID          int64  `json:"id"`
	ProductName string `json:"product_name"`
	Code        string `json:"sku_id"`
}

// Retailer is a store chain products are distributed to.
type Retailer struct {
	ID       int64  `json:"id"`
	Key      string `json:"retailer_key"`
	Name     string `json:"retailer_name"`
	Division string `json:"division"`
}

// MaxQuantity is the largest quantity a single transaction may change.
// It matches the range of the INTEGER ledger column.
const MaxQuantity = 2147483647

// TransactionInput is a POD change as submitted by a user, before validation.
// Names are free text and get fuzzy matched against master data.
type TransactionInput struct {
	ProductName   string `json:"product_name" validate:"required"`
	RetailerName  string `json:"retailer_name" validate:"required"`
	Quantity      int64  `json:"quantity" validate:"required,min=-2147483647,max=2147483647"`
	Status        string `json:"status" validate:"required"`
	EffectiveDate string `json:"effective_date" validate:"required"`
}

// Transaction is a validated and enriched ledger row.
// QuantityChanged is positive for gains and negative for losses.
type Transaction struct {
	TrxID           string    `json:"trx_id"`
	SKUID           int64     `json:"sku_id"`
	RetailerID      int64     `json:"retailer_id"`
	ProductName     string    `json:"product_name"`
	RetailerName    string    `json:"retailer_name"`
	Status          Status    `json:"status"`
	QuantityChanged int64     `json:"quantity_changed"`
	EffectiveDate   Date      `json:"effective_date"`
	LogTimestamp    time.Time `json:"log_timestamp"`
	UserID          string    `json:"user_id"`
	Source          string    `json:"source"`
}

// LedgerEntry is a transaction joined with its product and retailer attributes.
type LedgerEntry struct {
	TrxID           string    `json:"trx_id"`
	ProductName     string    `json:"product_name"`
	Retailer        string    `json:"retailer"`
	Division        string    `json:"division"`
	Status          Status    `json:"status"`
	QuantityChanged int64     `json:"quantity_changed"`
	EffectiveDate   Date      `json:"effective_date"`
	LogTimestamp    time.Time `json:"log_timestamp"`
	UserID          string    `json:"user_id"`
	Source          string    `json:"source"`
}

// MasterData lists the valid product and retailer names.
type MasterData struct {
	SKUs      []string `json:"skus"`
	Retailers []string `json:"retailers"`
}
