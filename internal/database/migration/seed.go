package migration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"podtracker/internal/database"
)

type seedSKU struct {
	ProductName string
	Code        string
}

type seedRetailer struct {
	Key      string
	Name     string
	Division string
}

var seedSKUs = []seedSKU{
	{"18oz quaker oats", "03000001041"},
	{"12oz honey nut cheerios", "01600027526"},
	{"12oz cheerios", "01600027525"},
	{"family size oreos", "04400003327"},
	{"10-pack coke zero", "04900003075"},
	{"doritos nacho cheese 9.75oz", "02840009089"},
	{"tostitos scoops 10oz", "02840006797"},
	{"pepsi 12-pack", "01200080994"},
	{"gatorade lemon-lime 28oz", "05200033812"},
	{"tropicana orange juice 52oz", "04850000574"},
	{"starbucks frap vanilla 4-pack", "01200081321"},
	{"ben & jerrys chocolate fudge brownie", "07684010129"},
	{"haagen-dazs vanilla 14oz", "07457002100"},
	{"diGiorno rising crust pepperoni pizza", "07192100613"},
	{"tide pods 3-in-1 72ct", "03700087535"},
	{"clorox disinfecting wipes 75ct", "04460030623"},
	{"colgate total toothpaste 4.8oz", "03500052020"},
	{"kraft mac & cheese 7.25oz", "02100065883"},
	{"heinz tomato ketchup 32oz", "01300000046"},
	{"campbells chicken noodle soup", "05100001251"},
	{"barilla spaghetti 1lb", "07680850001"},
	{"yoplait strawberry yogurt 6oz", "07047000300"},
	{"philadelphia cream cheese 8oz", "02100061221"},
	{"kelloggs frosted flakes 13.5oz", "03800020108"},
	{"pampers swaddlers diapers size 1", "03700074301"},
}

var seedRetailers = []seedRetailer{
	{"walmart", "Walmart", "National"},
	{"target", "Target", "National"},
	{"kroger", "Kroger", "National"},
	{"costco", "Costco", "National"},
	{"whole foods", "Whole Foods", "National"},
	{"aldi", "Aldi", "National"},
	{"publix", "Publix", "Southeast"},
	{"h-e-b", "H-E-B", "Southwest"},
	{"safeway", "Safeway", "West"},
	{"albertsons", "Albertsons", "West"},
	{"wegmans", "Wegmans", "Northeast"},
	{"stop & shop", "Stop & Shop", "Northeast"},
	{"sprouts", "Sprouts", "National"},
	{"7-eleven", "7-Eleven", "Convenience"},
}

// Seed fills the master data tables when they are empty. Each table is seeded
// in its own transaction so a populated table is never touched.
func Seed(ctx context.Context, db Conn, log zerolog.Logger) error {
	log = log.With().Str("component", "database").Logger()

	skuRows := make([][]any, 0, len(seedSKUs))
	for _, s := range seedSKUs {
		skuRows = append(skuRows, []any{s.ProductName, s.Code})
	}
	n, err := seedTable(ctx, db, "skus",
		`INSERT INTO skus (product_name, sku_id) VALUES ($1, $2)`, skuRows)
	if err != nil {
		return err
	}
	log.Info().Str("event", "db_seed").Str("table", "skus").Int("inserted", n).Send()

	retailerRows := make([][]any, 0, len(seedRetailers))
	for _, r := range seedRetailers {
		retailerRows = append(retailerRows, []any{r.Key, r.Name, r.Division})
	}
	n, err = seedTable(ctx, db, "retailers",
		`INSERT INTO retailers (retailer_key, retailer_name, division) VALUES ($1, $2, $3)`, retailerRows)
	if err != nil {
		return err
	}
	log.Info().Str("event", "db_seed").Str("table", "retailers").Int("inserted", n).Send()

	return nil
}

// seedTable inserts rows into table only when it has no rows yet and returns the number inserted.
func seedTable(ctx context.Context, db Conn, table, insert string, rows [][]any) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	if count > 0 {
		return 0, nil
	}

	err := database.InTx(ctx, db, func(tx *sql.Tx) error {
		for _, args := range rows {
			if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed %s: %w", table, err)
	}
	return len(rows), nil
}
