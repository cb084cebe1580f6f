package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"podtracker/internal/model"
	"podtracker/internal/repository"
)

type MockMasterDataRepository struct {
	mock.Mock
}

func (m *MockMasterDataRepository) ListSKUs(ctx context.Context) ([]model.SKU, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SKU), args.Error(1)
}

func (m *MockMasterDataRepository) ListRetailers(ctx context.Context) ([]model.Retailer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Retailer), args.Error(1)
}

// MockTransactionRepository hands Tx to every WithTx callback, so expectations
// for ledger operations are set on Tx directly.
type MockTransactionRepository struct {
	mock.Mock
	Tx *MockLedgerTx
}

func (m *MockTransactionRepository) WithTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.Tx)
}

func (m *MockTransactionRepository) ListLedger(ctx context.Context) ([]model.LedgerEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LedgerEntry), args.Error(1)
}

type MockLedgerTx struct {
	mock.Mock
}

func (m *MockLedgerTx) LockItem(ctx context.Context, skuID, retailerID int64) error {
	args := m.Called(ctx, skuID, retailerID)
	return args.Error(0)
}

func (m *MockLedgerTx) TotalAsOf(ctx context.Context, skuID, retailerID int64, asOf model.Date) (int64, error) {
	args := m.Called(ctx, skuID, retailerID, asOf)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerTx) HasDuplicate(ctx context.Context, t *model.Transaction) (bool, error) {
	args := m.Called(ctx, t)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerTx) Insert(ctx context.Context, t *model.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}
