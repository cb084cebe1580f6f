package report

import (
	"errors"
	"slices"
	"sort"
)

// GrandTotal labels the total row and column of a Matrix.
const GrandTotal = "Grand Total"

// ErrNotPivotable is returned by Pivot for results that are not grouped by
// exactly product and retailer.
var ErrNotPivotable = errors.New("result is not grouped by product_name and retailer")

// Matrix is the distribution matrix: products as rows, retailers as columns.
// Rows and Columns hold the display order, with GrandTotal last when present.
type Matrix struct {
	Rows    []string                    `json:"rows"`
	Columns []string                    `json:"columns"`
	Cells   map[string]map[string]int64 `json:"summary_data"`
}

// Empty reports whether the matrix has no products.
func (m *Matrix) Empty() bool {
	return m == nil || len(m.Rows) == 0
}

// Value returns the cell for product and retailer, zero when absent.
func (m *Matrix) Value(product, retailer string) int64 {
	if m == nil {
		return 0
	}
	return m.Cells[product][retailer]
}

// Pivot turns a product and retailer grouped result into a Matrix with missing
// cells set to zero, labels sorted and grand totals appended.
func Pivot(r Result) (*Matrix, error) {
	pi := slices.Index(r.GroupBy, ColProductName)
	ri := slices.Index(r.GroupBy, ColRetailer)
	if len(r.GroupBy) != 2 || pi < 0 || ri < 0 {
		return nil, ErrNotPivotable
	}

	m := &Matrix{
		Rows:    []string{},
		Columns: []string{},
		Cells:   make(map[string]map[string]int64),
	}
	if len(r.Rows) == 0 {
		return m, nil
	}

	products := make(map[string]bool)
	retailers := make(map[string]bool)
	for _, row := range r.Rows {
		p, rt := row.Keys[pi], row.Keys[ri]
		products[p] = true
		retailers[rt] = true
		if m.Cells[p] == nil {
			m.Cells[p] = make(map[string]int64)
		}
		m.Cells[p][rt] += row.Value
	}

	m.Rows = sortedKeys(products)
	m.Columns = sortedKeys(retailers)

	totals := make(map[string]int64, len(m.Columns)+1)
	for _, p := range m.Rows {
		var rowTotal int64
		for _, rt := range m.Columns {
			v := m.Cells[p][rt]
			m.Cells[p][rt] = v
			rowTotal += v
			totals[rt] += v
		}
		m.Cells[p][GrandTotal] = rowTotal
		totals[GrandTotal] += rowTotal
	}
	m.Cells[GrandTotal] = totals
	m.Rows = append(m.Rows, GrandTotal)
	m.Columns = append(m.Columns, GrandTotal)
	return m, nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
