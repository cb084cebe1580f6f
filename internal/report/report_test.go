package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"podtracker/internal/model"
)

var today = model.NewDate(2025, time.June, 15)

func entry(product, retailer string, qty int64, day model.Date) model.LedgerEntry {
	status := model.StatusLive
	if qty < 0 {
		status = model.StatusLost
	}
	return model.LedgerEntry{
		TrxID:           product + "-" + retailer,
		ProductName:     product,
		Retailer:        retailer,
		Division:        "National",
		Status:          status,
		QuantityChanged: qty,
		EffectiveDate:   day,
		UserID:          "tester",
		Source:          model.SourceAPI,
	}
}

func ledger() []model.LedgerEntry {
	return []model.LedgerEntry{
		entry("12oz cheerios", "Walmart", 10, model.NewDate(2025, time.January, 1)),
		entry("12oz cheerios", "Target", 4, model.NewDate(2025, time.February, 1)),
		entry("12oz cheerios", "Walmart", -3, model.NewDate(2025, time.March, 1)),
		entry("family size oreos", "Walmart", 6, model.NewDate(2025, time.April, 1)),
		entry("family size oreos", "Target", 5, model.NewDate(2025, time.July, 1)),
	}
}

func TestExecute(t *testing.T) {
	t.Run("grouped current state", func(t *testing.T) {
		res := Execute(ledger(), SummaryPlan(), false, today)

		assert.Equal(t, []string{ColProductName, ColRetailer}, res.GroupBy)
		assert.Equal(t, []Row{
			{Keys: []string{"12oz cheerios", "Target"}, Value: 4},
			{Keys: []string{"12oz cheerios", "Walmart"}, Value: 7},
			{Keys: []string{"family size oreos", "Walmart"}, Value: 6},
		}, res.Rows)
	})

	t.Run("future dates included", func(t *testing.T) {
		res := Execute(ledger(), SummaryPlan(), true, today)

		require.Len(t, res.Rows, 4)
		assert.Equal(t, int64(22), res.Total())
	})

	t.Run("case-insensitive substring filter", func(t *testing.T) {
		plan := QueryPlan{
			Filters: map[string]any{ColRetailer: "wal", ColDivision: "", "unknown": "x"},
			GroupBy: []string{ColProductName},
		}
		res := Execute(ledger(), plan, true, today)

		assert.Equal(t, []Row{
			{Keys: []string{"12oz cheerios"}, Value: 7},
			{Keys: []string{"family size oreos"}, Value: 6},
		}, res.Rows)
	})

	t.Run("no valid group columns yields total", func(t *testing.T) {
		plan := QueryPlan{GroupBy: []string{"quantity"}}
		res := Execute(ledger(), plan, false, today)

		assert.Empty(t, res.GroupBy)
		assert.Equal(t, []Row{{Value: 17}}, res.Rows)
	})

	t.Run("filter matching nothing still totals", func(t *testing.T) {
		plan := QueryPlan{Filters: map[string]any{ColRetailer: "costco"}}
		res := Execute(ledger(), plan, false, today)

		assert.Equal(t, []Row{{Value: 0}}, res.Rows)
	})

	t.Run("empty ledger", func(t *testing.T) {
		res := Execute(nil, SummaryPlan(), true, today)

		assert.Empty(t, res.Rows)
	})
}

func TestQueryPlan_IncludeFuture(t *testing.T) {
	var p QueryPlan
	require.NoError(t, json.Unmarshal([]byte(`{"filters":{"retailer":"Target"},"group_by":["status"]}`), &p))
	assert.True(t, p.IncludeFuture(true))
	assert.False(t, p.IncludeFuture(false))

	require.NoError(t, json.Unmarshal([]byte(`{"include_future_dates":true}`), &p))
	assert.True(t, p.IncludeFuture(false))
}

func TestResult_MarshalJSON(t *testing.T) {
	res := Result{
		GroupBy: []string{ColRetailer},
		Rows:    []Row{{Keys: []string{"Target"}, Value: 9}},
	}

	b, err := json.Marshal(res)

	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["retailer","value"],"rows":[{"retailer":"Target","value":9}]}`, string(b))
}

func TestPivot(t *testing.T) {
	t.Run("matrix with grand totals", func(t *testing.T) {
		m, err := Pivot(Execute(ledger(), SummaryPlan(), false, today))

		require.NoError(t, err)
		assert.Equal(t, []string{"12oz cheerios", "family size oreos", GrandTotal}, m.Rows)
		assert.Equal(t, []string{"Target", "Walmart", GrandTotal}, m.Columns)
		assert.Equal(t, int64(0), m.Value("family size oreos", "Target"))
		assert.Equal(t, int64(11), m.Value("12oz cheerios", GrandTotal))
		assert.Equal(t, int64(13), m.Value(GrandTotal, "Walmart"))
		assert.Equal(t, int64(17), m.Value(GrandTotal, GrandTotal))
	})

	t.Run("group order does not matter", func(t *testing.T) {
		plan := QueryPlan{GroupBy: []string{ColRetailer, ColProductName}}
		m, err := Pivot(Execute(ledger(), plan, true, today))

		require.NoError(t, err)
		assert.Equal(t, int64(5), m.Value("family size oreos", "Target"))
	})

	t.Run("empty result", func(t *testing.T) {
		m, err := Pivot(Execute(nil, SummaryPlan(), false, today))

		require.NoError(t, err)
		assert.True(t, m.Empty())
		b, err := json.Marshal(m)
		require.NoError(t, err)
		assert.JSONEq(t, `{"rows":[],"columns":[],"summary_data":{}}`, string(b))
	})

	t.Run("other grouping rejected", func(t *testing.T) {
		_, err := Pivot(Execute(ledger(), QueryPlan{GroupBy: []string{ColStatus}}, false, today))

		assert.ErrorIs(t, err, ErrNotPivotable)
	})
}

func TestWriteWorkbook(t *testing.T) {
	current, err := Pivot(Execute(ledger(), SummaryPlan(), false, today))
	require.NoError(t, err)
	future := &Matrix{}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, current, future))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetCurrent, SheetFuture}, f.GetSheetList())

	rows, err := f.GetRows(SheetCurrent)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"product_name", "Target", "Walmart", GrandTotal}, rows[0])
	assert.Equal(t, []string{"12oz cheerios", "4", "7", "11"}, rows[1])
	assert.Equal(t, []string{GrandTotal, "4", "13", "17"}, rows[3])

	rows, err = f.GetRows(SheetFuture)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Message"}, {"No future POD data available"}}, rows)
}

func TestFilename(t *testing.T) {
	ts := time.Date(2025, time.June, 15, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "pod_report_20250615_090507.xlsx", Filename(ts))
}
