package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"podtracker/internal/model"
	"podtracker/internal/repository"
	"podtracker/internal/storage"
)

const bulkStatusComplete = "complete"

var bulkColumns = []string{"product_name", "retailer_name", "quantity", "status", "effective_date"}

type bulkRow struct {
	line int
	trx  *model.Transaction
}

type itemKey struct {
	skuID      int64
	retailerID int64
}

// batchInsertError marks a failed insert so the batch is reported instead of returned.
type batchInsertError struct {
	err error
}

func (e *batchInsertError) Error() string { return e.err.Error() }
func (e *batchInsertError) Unwrap() error { return e.err }

func (s *transactionService) BulkUpload(ctx context.Context, r io.Reader, filename, userID string) (*BulkResult, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".csv") {
		return nil, invalid("Invalid file type. Please upload a CSV.")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	inputs, err := parseBulkCSV(data)
	if err != nil {
		return nil, invalid("Could not parse CSV file: %v", err)
	}

	cat, err := s.catalog(ctx)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Status: bulkStatusComplete, Errors: []string{}}
	rows := make([]bulkRow, 0, len(inputs))
	for _, in := range inputs {
		trx, err := s.enrichRow(cat, in, userID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", in.line, err))
			continue
		}
		rows = append(rows, bulkRow{line: in.line, trx: trx})
	}
	if len(rows) == 0 {
		s.finishBulk(result, filename, userID)
		return result, nil
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].trx.EffectiveDate.Before(rows[j].trx.EffectiveDate)
	})

	archiveKey := s.archiveUpload(ctx, filename, data)

	var committed []*model.Transaction
	err = s.ledger.WithTx(ctx, func(tx repository.LedgerTx) error {
		if err := lockItems(ctx, tx, rows); err != nil {
			return err
		}
		running := make(map[itemKey]int64)
		accepted := make([]*model.Transaction, 0, len(rows))

		for _, row := range rows {
			trx := row.trx
			key := itemKey{trx.SKUID, trx.RetailerID}
			dbTotal, err := tx.TotalAsOf(ctx, key.skuID, key.retailerID, trx.EffectiveDate)
			if err != nil {
				return err
			}
			projected := dbTotal + running[key]
			if trx.QuantityChanged < 0 && -trx.QuantityChanged > projected {
				result.Errors = append(result.Errors, fmt.Sprintf(
					"Row %d for %s: Trying to lose %d, but projected total is only %d.",
					row.line, trx.ProductName, -trx.QuantityChanged, projected))
				continue
			}
			running[key] += trx.QuantityChanged
			accepted = append(accepted, trx)
		}

		for _, trx := range accepted {
			if err := tx.Insert(ctx, trx); err != nil {
				return &batchInsertError{err: err}
			}
		}
		committed = accepted
		return nil
	})

	var insertErr *batchInsertError
	switch {
	case errors.As(err, &insertErr):
		s.discardUpload(ctx, archiveKey)
		result.SuccessfulLogs = 0
		result.Errors = append(result.Errors, fmt.Sprintf("Database batch insert failed: %v", insertErr.err))
		s.finishBulk(result, filename, userID)
		return result, nil
	case err != nil:
		s.discardUpload(ctx, archiveKey)
		return nil, fmt.Errorf("bulk upload: %w", err)
	}

	result.SuccessfulLogs = len(committed)
	for _, trx := range committed {
		s.opts.Metrics.logged(trx.Source, string(trx.Status))
	}
	s.finishBulk(result, filename, userID)
	return result, nil
}

// lockItems locks every product and retailer pair in rows, ordered by SKU then
// retailer, so concurrent uploads always acquire shared pairs in the same order.
func lockItems(ctx context.Context, tx repository.LedgerTx, rows []bulkRow) error {
	seen := make(map[itemKey]bool, len(rows))
	keys := make([]itemKey, 0, len(rows))
	for _, row := range rows {
		key := itemKey{row.trx.SKUID, row.trx.RetailerID}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].skuID != keys[j].skuID {
			return keys[i].skuID < keys[j].skuID
		}
		return keys[i].retailerID < keys[j].retailerID
	})
	for _, key := range keys {
		if err := tx.LockItem(ctx, key.skuID, key.retailerID); err != nil {
			return err
		}
	}
	return nil
}

func (s *transactionService) finishBulk(result *BulkResult, filename, userID string) {
	s.opts.Metrics.rejected(len(result.Errors))
	s.log.Info().
		Str("event", "bulk_upload").
		Str("filename", filename).
		Str("user_id", userID).
		Int("successful_logs", result.SuccessfulLogs).
		Int("errors", len(result.Errors)).
		Send()
}

// enrichRow validates a CSV row like a single transaction, minus the loss and duplicate checks.
func (s *transactionService) enrichRow(cat *catalog, in bulkInput, userID string) (*model.Transaction, error) {
	qty, err := parseQuantity(in.quantity)
	if err != nil {
		return nil, err
	}
	ti := model.TransactionInput{
		ProductName:   in.productName,
		RetailerName:  in.retailerName,
		Quantity:      qty,
		Status:        in.status,
		EffectiveDate: in.effectiveDate,
	}
	if err := s.validateInput(ti); err != nil {
		return nil, err
	}
	return s.enrich(cat, ti, userID, model.SourceBulk)
}

func (s *transactionService) archiveUpload(ctx context.Context, filename string, data []byte) string {
	key := storage.UploadKey(s.opts.now(), filename)
	_, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: "text/csv",
		Metadata:    map[string]string{"original-filename": filename},
	})
	if errors.Is(err, storage.ErrDisabled) {
		return ""
	}
	if err != nil {
		s.log.Warn().Err(err).Str("event", "upload_archive_failed").Str("key", key).Send()
		return ""
	}
	return key
}

func (s *transactionService) discardUpload(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("event", "upload_archive_cleanup_failed").Str("key", key).Send()
	}
}

type bulkInput struct {
	line          int
	productName   string
	retailerName  string
	quantity      string
	status        string
	effectiveDate string
}

// parseBulkCSV reads the header and every data row. Line numbers follow the
// spreadsheet convention where the header is line 1.
func parseBulkCSV(data []byte) ([]bulkInput, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range bulkColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	field := func(rec []string, col string) string {
		i := idx[col]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []bulkInput
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		out = append(out, bulkInput{
			line:          line,
			productName:   field(rec, "product_name"),
			retailerName:  field(rec, "retailer_name"),
			quantity:      field(rec, "quantity"),
			status:        field(rec, "status"),
			effectiveDate: field(rec, "effective_date"),
		})
	}
	return out, nil
}

// parseQuantity accepts integers and integral decimals such as "5.0" within
// the ledger's quantity range.
// An empty cell yields zero, which validation reports as missing.
func parseQuantity(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, invalid("Invalid quantity: '%s'.", s)
	}
	if math.Abs(f) > model.MaxQuantity {
		return 0, invalid("Invalid quantity: '%s'. Must be at most %d.", s, model.MaxQuantity)
	}
	return int64(f), nil
}
