package postgres

import (
	"context"
	"database/sql"

	"podtracker/internal/model"
	"podtracker/internal/repository"
)

// MasterDataPostgres is a PostgreSQL implementation of repository.MasterDataRepository.
type MasterDataPostgres struct {
	db *sql.DB
}

// NewMasterDataPostgres creates a new MasterDataPostgres repository.
func NewMasterDataPostgres(db *sql.DB) *MasterDataPostgres {
	return &MasterDataPostgres{db: db}
}

var _ repository.MasterDataRepository = (*MasterDataPostgres)(nil)

// ListSKUs returns all SKUs ordered by product name.
func (r *MasterDataPostgres) ListSKUs(ctx context.Context) ([]model.SKU, error) {
	const q = `
		SELECT id, product_name, sku_id
		FROM skus
		ORDER BY product_name
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.SKU, 0)
	for rows.Next() {
		var s model.SKU
		if err := rows.Scan(&s.ID, &s.ProductName, &s.Code); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListRetailers returns all retailers ordered by display name.
func (r *MasterDataPostgres) ListRetailers(ctx context.Context) ([]model.Retailer, error) {
	const q = `
		SELECT id, retailer_key, retailer_name, COALESCE(division, '')
		FROM retailers
		ORDER BY retailer_name
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Retailer, 0)
	for rows.Next() {
		var rt model.Retailer
		if err := rows.Scan(&rt.ID, &rt.Key, &rt.Name, &rt.Division); err != nil {
			return nil, err
		}
		items = append(items, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
