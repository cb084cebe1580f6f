package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"podtracker/internal/model"
	"podtracker/internal/report"
	"podtracker/internal/repository"
	"podtracker/internal/storage"
)

// ReportURLExpiry is how long presigned report links stay valid.
const ReportURLExpiry = 24 * time.Hour

// Export is a generated Excel report.
type Export struct {
	Filename string
	Data     []byte
	// URL is a presigned download link of the archived copy, empty when not archived.
	URL string
}

// ReportService defines the read side of the ledger.
type ReportService interface {
	// Summary returns the product by retailer matrix, optionally including future-dated rows.
	Summary(ctx context.Context, includeFuture bool) (*report.Matrix, error)

	// Query executes plan against the ledger.
	Query(ctx context.Context, plan report.QueryPlan, includeFuture bool) (report.Result, error)

	// Export builds the two-sheet workbook and archives it when storage is available.
	Export(ctx context.Context) (*Export, error)

	// Report streams an archived report by file name.
	Report(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error)
}

type reportService struct {
	ledger repository.TransactionRepository
	store  storage.Storage
	opts   Options
	log    zerolog.Logger
}

// NewReportService constructs a new ReportService.
func NewReportService(ledger repository.TransactionRepository, store storage.Storage, opts Options) ReportService {
	if store == nil {
		store = storage.Disabled()
	}
	opts = opts.withDefaults()
	return &reportService{
		ledger: ledger,
		store:  store,
		opts:   opts,
		log:    opts.Logger.With().Str("component", "reports").Logger(),
	}
}

func (s *reportService) Summary(ctx context.Context, includeFuture bool) (*report.Matrix, error) {
	entries, err := s.ledger.ListLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	return summarize(entries, includeFuture, s.opts.today())
}

func (s *reportService) Query(ctx context.Context, plan report.QueryPlan, includeFuture bool) (report.Result, error) {
	entries, err := s.ledger.ListLedger(ctx)
	if err != nil {
		return report.Result{}, fmt.Errorf("list ledger: %w", err)
	}
	return report.Execute(entries, plan, includeFuture, s.opts.today()), nil
}

func (s *reportService) Export(ctx context.Context) (*Export, error) {
	entries, err := s.ledger.ListLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	today := s.opts.today()
	current, err := summarize(entries, false, today)
	if err != nil {
		return nil, err
	}
	future, err := summarize(entries, true, today)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, current, future); err != nil {
		return nil, fmt.Errorf("build workbook: %w", err)
	}

	exp := &Export{Filename: report.Filename(s.opts.now()), Data: buf.Bytes()}
	exp.URL = s.archiveReport(ctx, exp)
	return exp, nil
}

func (s *reportService) Report(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	key, ok := storage.ReportName(name)
	if !ok {
		return nil, storage.ObjectInfo{}, ErrNotFound
	}
	rc, info, err := s.store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrDisabled) {
		return nil, storage.ObjectInfo{}, ErrNotFound
	}
	if err != nil {
		return nil, storage.ObjectInfo{}, fmt.Errorf("get report: %w", err)
	}
	return rc, info, nil
}

func (s *reportService) archiveReport(ctx context.Context, exp *Export) string {
	key := storage.ReportKey(exp.Filename)
	_, err := s.store.Put(ctx, key, bytes.NewReader(exp.Data), storage.PutObjectOptions{
		Size:               int64(len(exp.Data)),
		ContentType:        report.ExcelContentType,
		ContentDisposition: storage.Attachment(exp.Filename),
	})
	if errors.Is(err, storage.ErrDisabled) {
		return ""
	}
	if err != nil {
		s.log.Warn().Err(err).Str("event", "report_archive_failed").Str("key", key).Send()
		return ""
	}
	url, err := s.store.PresignGet(ctx, key, ReportURLExpiry)
	if err != nil {
		s.log.Warn().Err(err).Str("event", "report_presign_failed").Str("key", key).Send()
		return ""
	}
	s.log.Info().Str("event", "report_archived").Str("key", key).Send()
	return url
}

func summarize(entries []model.LedgerEntry, includeFuture bool, today model.Date) (*report.Matrix, error) {
	m, err := report.Pivot(report.Execute(entries, report.SummaryPlan(), includeFuture, today))
	if err != nil {
		return nil, fmt.Errorf("pivot summary: %w", err)
	}
	return m, nil
}
