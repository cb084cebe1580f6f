package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"podtracker/internal/model"
	"podtracker/internal/report"
	"podtracker/internal/service"
	"podtracker/internal/storage"
)

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) MasterData(ctx context.Context) (*model.MasterData, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MasterData), args.Error(1)
}

func (m *MockTransactionService) Log(ctx context.Context, in model.TransactionInput, userID, source string) (*model.Transaction, error) {
	args := m.Called(ctx, in, userID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionService) BulkUpload(ctx context.Context, r io.Reader, filename, userID string) (*service.BulkResult, error) {
	args := m.Called(ctx, r, filename, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BulkResult), args.Error(1)
}

func (m *MockTransactionService) Ledger(ctx context.Context) ([]model.LedgerEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LedgerEntry), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Summary(ctx context.Context, includeFuture bool) (*report.Matrix, error) {
	args := m.Called(ctx, includeFuture)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.Matrix), args.Error(1)
}

func (m *MockReportService) Query(ctx context.Context, plan report.QueryPlan, includeFuture bool) (report.Result, error) {
	args := m.Called(ctx, plan, includeFuture)
	return args.Get(0).(report.Result), args.Error(1)
}

func (m *MockReportService) Export(ctx context.Context) (*service.Export, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Export), args.Error(1)
}

func (m *MockReportService) Report(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, storage.ObjectInfo{}, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Plan(ctx context.Context, question string) (*report.QueryPlan, error) {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*report.QueryPlan), args.Error(1)
}

func (m *MockChatService) Query(ctx context.Context, question string) (*service.PlannedQuery, error) {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PlannedQuery), args.Error(1)
}

func (m *MockChatService) Ask(ctx context.Context, question string) (string, error) {
	args := m.Called(ctx, question)
	return args.String(0), args.Error(1)
}
