// Package report aggregates the POD ledger: query plans over ledger entries,
// the product by retailer distribution matrix and its Excel export.
package report

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"podtracker/internal/model"
)

// Ledger columns that plans may filter and group on.
const (
	ColRetailer      = "retailer"
	ColProductName   = "product_name"
	ColDivision      = "division"
	ColStatus        = "status"
	ColEffectiveDate = "effective_date"
	ColTrxID         = "trx_id"
	ColUserID        = "user_id"
	ColSource        = "source"
)

// ValueColumn names the aggregated quantity in a Result.
const ValueColumn = "value"

// Columns lists every column a plan can reference.
var Columns = []string{
	ColRetailer,
	ColProductName,
	ColDivision,
	ColStatus,
	ColEffectiveDate,
	ColTrxID,
	ColUserID,
	ColSource,
}

// QueryPlan describes a filter and aggregation over the ledger.
// Filter values are matched as case-insensitive substrings.
type QueryPlan struct {
	Filters            map[string]any `json:"filters,omitempty"`
	GroupBy            []string       `json:"group_by,omitempty"`
	IncludeFutureDates *bool          `json:"include_future_dates,omitempty"`
}

// SummaryPlan groups by product and retailer, the shape of the distribution matrix.
func SummaryPlan() QueryPlan {
	return QueryPlan{GroupBy: []string{ColProductName, ColRetailer}}
}

// IncludeFuture reports the plan's include_future_dates flag, or def when unset.
func (p QueryPlan) IncludeFuture(def bool) bool {
	if p.IncludeFutureDates == nil {
		return def
	}
	return *p.IncludeFutureDates
}

// Row is one group of a Result. Keys align with Result.GroupBy.
type Row struct {
	Keys  []string
	Value int64
}

// Result is the outcome of executing a plan. An ungrouped result holds a single
// row with no keys.
type Result struct {
	GroupBy []string
	Rows    []Row
}

// MarshalJSON renders rows as objects keyed by column name.
func (r Result) MarshalJSON() ([]byte, error) {
	rows := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		obj := make(map[string]any, len(r.GroupBy)+1)
		for i, col := range r.GroupBy {
			obj[col] = row.Keys[i]
		}
		obj[ValueColumn] = row.Value
		rows = append(rows, obj)
	}
	return json.Marshal(struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}{
		Columns: append(slices.Clone(r.GroupBy), ValueColumn),
		Rows:    rows,
	})
}

// Total sums every row value.
func (r Result) Total() int64 {
	var total int64
	for _, row := range r.Rows {
		total += row.Value
	}
	return total
}

// Execute applies plan to entries. Rows dated after today are dropped unless
// includeFuture is set. Unknown filter and group columns are ignored; with no
// usable group column the result is a single total. An empty ledger yields an
// empty result.
func Execute(entries []model.LedgerEntry, plan QueryPlan, includeFuture bool, today model.Date) Result {
	groupBy := make([]string, 0, len(plan.GroupBy))
	for _, col := range plan.GroupBy {
		if isColumn(col) && !slices.Contains(groupBy, col) {
			groupBy = append(groupBy, col)
		}
	}
	if len(entries) == 0 {
		return Result{GroupBy: groupBy}
	}

	filters := activeFilters(plan.Filters)
	selected := make([]model.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if !includeFuture && e.EffectiveDate.After(today) {
			continue
		}
		if matches(e, filters) {
			selected = append(selected, e)
		}
	}

	if len(groupBy) == 0 {
		var total int64
		for _, e := range selected {
			total += e.QuantityChanged
		}
		return Result{Rows: []Row{{Value: total}}}
	}

	sums := make(map[string]*Row)
	for _, e := range selected {
		keys := make([]string, len(groupBy))
		for i, col := range groupBy {
			keys[i] = ColumnValue(e, col)
		}
		id := strings.Join(keys, "\x00")
		row, ok := sums[id]
		if !ok {
			row = &Row{Keys: keys}
			sums[id] = row
		}
		row.Value += e.QuantityChanged
	}

	rows := make([]Row, 0, len(sums))
	for _, row := range sums {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return slices.Compare(rows[i].Keys, rows[j].Keys) < 0
	})
	return Result{GroupBy: groupBy, Rows: rows}
}

// ColumnValue returns the string form of col for e, or "" for unknown columns.
func ColumnValue(e model.LedgerEntry, col string) string {
	switch col {
	case ColRetailer:
		return e.Retailer
	case ColProductName:
		return e.ProductName
	case ColDivision:
		return e.Division
	case ColStatus:
		return string(e.Status)
	case ColEffectiveDate:
		return e.EffectiveDate.String()
	case ColTrxID:
		return e.TrxID
	case ColUserID:
		return e.UserID
	case ColSource:
		return e.Source
	default:
		return ""
	}
}

func isColumn(col string) bool {
	return slices.Contains(Columns, col)
}

type filter struct {
	col   string
	value string
}

func activeFilters(in map[string]any) []filter {
	out := make([]filter, 0, len(in))
	for col, v := range in {
		if !isColumn(col) || isEmpty(v) {
			continue
		}
		out = append(out, filter{col: col, value: strings.ToLower(fmt.Sprint(v))})
	}
	return out
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	case []any:
		return len(x) == 0
	default:
		return false
	}
}

func matches(e model.LedgerEntry, filters []filter) bool {
	for _, f := range filters {
		if !strings.Contains(strings.ToLower(ColumnValue(e, f.col)), f.value) {
			return false
		}
	}
	return true
}
