package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"podtracker/internal/fuzzy"
	"podtracker/internal/model"
	"podtracker/internal/repository"
	"podtracker/internal/storage"
)

// BulkResult is the outcome of a CSV bulk upload.
type BulkResult struct {
	Status         string   `json:"status"`
	SuccessfulLogs int      `json:"successful_logs"`
	Errors         []string `json:"errors"`
}

// TransactionService defines the use cases for writing to the POD ledger.
type TransactionService interface {
	// MasterData returns the valid product and retailer names.
	MasterData(ctx context.Context) (*model.MasterData, error)

	// Log validates, enriches and stores a single transaction. Rejections are *ValidationError.
	Log(ctx context.Context, in model.TransactionInput, userID, source string) (*model.Transaction, error)

	// BulkUpload ingests a CSV file of transactions in one database transaction.
	// Per-row problems are reported in the result; file-level problems are *ValidationError.
	BulkUpload(ctx context.Context, r io.Reader, filename, userID string) (*BulkResult, error)

	// Ledger returns every stored transaction with product and retailer attributes.
	Ledger(ctx context.Context) ([]model.LedgerEntry, error)
}

type transactionService struct {
	master   repository.MasterDataRepository
	ledger   repository.TransactionRepository
	store    storage.Storage
	validate *validator.Validate
	opts     Options
	log      zerolog.Logger
}

// NewTransactionService constructs a new TransactionService.
func NewTransactionService(
	master repository.MasterDataRepository,
	ledger repository.TransactionRepository,
	store storage.Storage,
	opts Options,
) TransactionService {
	if store == nil {
		store = storage.Disabled()
	}
	opts = opts.withDefaults()
	return &transactionService{
		master:   master,
		ledger:   ledger,
		store:    store,
		validate: validator.New(),
		opts:     opts,
		log:      opts.Logger.With().Str("component", "transactions").Logger(),
	}
}

func (s *transactionService) MasterData(ctx context.Context) (*model.MasterData, error) {
	cat, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return &model.MasterData{SKUs: cat.skuNames, Retailers: cat.retailerNames}, nil
}

func (s *transactionService) Ledger(ctx context.Context) ([]model.LedgerEntry, error) {
	return s.ledger.ListLedger(ctx)
}

func (s *transactionService) Log(ctx context.Context, in model.TransactionInput, userID, source string) (*model.Transaction, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	cat, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}
	trx, err := s.enrich(cat, in, userID, source)
	if err != nil {
		return nil, err
	}

	err = s.ledger.WithTx(ctx, func(tx repository.LedgerTx) error {
		if err := tx.LockItem(ctx, trx.SKUID, trx.RetailerID); err != nil {
			return err
		}
		if trx.QuantityChanged < 0 {
			total, err := tx.TotalAsOf(ctx, trx.SKUID, trx.RetailerID, trx.EffectiveDate)
			if err != nil {
				return err
			}
			if -trx.QuantityChanged > total {
				return invalid("Cannot lose more PODs than exist. Projected total is %d.", total)
			}
		}
		dup, err := tx.HasDuplicate(ctx, trx)
		if err != nil {
			return err
		}
		if dup {
			return invalid("Duplicate transaction detected.")
		}
		return tx.Insert(ctx, trx)
	})
	if errors.Is(err, repository.ErrDuplicateTransaction) {
		return nil, invalid("Duplicate transaction detected.")
	}
	if err != nil {
		return nil, err
	}

	s.opts.Metrics.logged(trx.Source, string(trx.Status))
	s.log.Info().
		Str("event", "transaction_logged").
		Str("trx_id", trx.TrxID).
		Str("status", string(trx.Status)).
		Int64("quantity_changed", trx.QuantityChanged).
		Str("user_id", trx.UserID).
		Str("source", trx.Source).
		Send()
	return trx, nil
}

// catalog is the master data snapshot names are matched against.
type catalog struct {
	skus          []model.SKU
	skuNames      []string
	retailers     []model.Retailer
	retailerNames []string
}

func (s *transactionService) catalog(ctx context.Context) (*catalog, error) {
	skus, err := s.master.ListSKUs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list skus: %w", err)
	}
	retailers, err := s.master.ListRetailers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list retailers: %w", err)
	}

	cat := &catalog{
		skus:          skus,
		skuNames:      make([]string, len(skus)),
		retailers:     retailers,
		retailerNames: make([]string, len(retailers)),
	}
	for i, sku := range skus {
		cat.skuNames[i] = sku.ProductName
	}
	for i, r := range retailers {
		cat.retailerNames[i] = r.Name
	}
	return cat, nil
}

// enrich resolves names, the signed quantity and the stored status of in.
func (s *transactionService) enrich(cat *catalog, in model.TransactionInput, userID, source string) (*model.Transaction, error) {
	rm, ok := fuzzy.BestMatch(in.RetailerName, cat.retailerNames, s.opts.FuzzyThreshold)
	if !ok {
		return nil, invalid("Invalid Retailer: '%s'.", in.RetailerName)
	}
	pm, ok := fuzzy.BestMatch(in.ProductName, cat.skuNames, s.opts.FuzzyThreshold)
	if !ok {
		return nil, invalid("Invalid Product: '%s'.", in.ProductName)
	}
	retailer := cat.retailers[rm.Index]
	sku := cat.skus[pm.Index]

	date, err := model.ParseDate(in.EffectiveDate)
	if err != nil {
		return nil, invalid("Invalid effective date: '%s'. Use YYYY-MM-DD.", in.EffectiveDate)
	}

	qty := in.Quantity
	if qty < 0 {
		qty = -qty
	}

	var (
		status  model.Status
		changed int64
	)
	switch intent := strings.ToLower(strings.TrimSpace(in.Status)); intent {
	case model.IntentPlanned:
		changed = qty
		status = model.StatusLive
		if date.After(s.opts.today()) {
			status = model.StatusPlanned
		}
	case model.IntentLost:
		changed = -qty
		status = model.StatusLost
	default:
		return nil, invalid("Invalid status: '%s'. Must be 'planned' or 'lost'.", intent)
	}

	return &model.Transaction{
		TrxID:           fmt.Sprintf("%d-%d-%s", sku.ID, retailer.ID, uuid.NewString()),
		SKUID:           sku.ID,
		RetailerID:      retailer.ID,
		ProductName:     sku.ProductName,
		RetailerName:    retailer.Name,
		Status:          status,
		QuantityChanged: changed,
		EffectiveDate:   date,
		LogTimestamp:    s.opts.now(),
		UserID:          userID,
		Source:          source,
	}, nil
}

// validateInput reports an out of range quantity by name and any other
// failure as missing fields.
func (s *transactionService) validateInput(in model.TransactionInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		for _, fe := range fields {
			if fe.Field() == "Quantity" && (fe.Tag() == "min" || fe.Tag() == "max") {
				return invalid("Invalid quantity: '%d'. Must be at most %d.", in.Quantity, model.MaxQuantity)
			}
		}
	}
	return invalid("Missing one or more required fields.")
}
