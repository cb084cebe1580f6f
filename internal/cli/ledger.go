package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podtracker/internal/model"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and seed master data",
	Long:  "Applies pending schema migrations and seeds the product and retailer tables when they are empty.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// connect migrates and seeds on open.
		success(cmd, "Database schema is up to date.")
		return nil
	},
}

var masterDataCmd = &cobra.Command{
	Use:   "master-data",
	Short: "List valid products and retailers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		md, err := transactionService.MasterData(cmd.Context())
		if err != nil {
			return err
		}
		t := newTable("products", "retailers")
		skus, retailers := sortedCopy(md.SKUs), sortedCopy(md.Retailers)
		for i := 0; i < max(len(skus), len(retailers)); i++ {
			t.Row(at(skus, i), at(retailers, i))
		}
		cmd.Println(t.Render())
		return nil
	},
}

var (
	logProduct  string
	logRetailer string
	logQuantity int64
	logStatus   string
	logDate     string
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Log a single POD gain or loss",
	Example: `  podctl log --product "family size oreos" --retailer walmart --quantity 120 --date 2025-07-01
  podctl log -p cheerios -r target -q 10 --status lost`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := model.TransactionInput{
			ProductName:   logProduct,
			RetailerName:  logRetailer,
			Quantity:      logQuantity,
			Status:        strings.ToLower(logStatus),
			EffectiveDate: logDate,
		}
		if in.EffectiveDate == "" {
			in.EffectiveDate = time.Now().Format(model.DateLayout)
		}
		trx, err := transactionService.Log(cmd.Context(), in, userID, model.SourceCLI)
		if err != nil {
			return err
		}
		success(cmd, fmt.Sprintf("Logged %s: %s at %s, %+d PODs effective %s.",
			trx.TrxID, trx.ProductName, trx.RetailerName, trx.QuantityChanged, trx.EffectiveDate.Format(model.DateLayout)))
		return nil
	},
}

var bulkAddCmd = &cobra.Command{
	Use:   "bulk-add <file.csv>",
	Short: "Log every row of a CSV file",
	Long: `Reads a CSV with the columns product_name, retailer_name, quantity, status
and effective_date. Valid rows are stored together; invalid rows are reported
and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		res, err := transactionService.BulkUpload(cmd.Context(), f, args[0], userID)
		if err != nil {
			return err
		}
		cmd.Println("--- Bulk Add Complete ---")
		success(cmd, fmt.Sprintf("Successfully logged %d transactions.", res.SuccessfulLogs))
		if len(res.Errors) > 0 {
			warn(cmd, fmt.Sprintf("Skipped %d transactions with errors:", len(res.Errors)))
			for _, e := range res.Errors {
				cmd.Println("  - " + e)
			}
		}
		return nil
	},
}

func init() {
	logCmd.Flags().StringVarP(&logProduct, "product", "p", "", "product name (fuzzy matched)")
	logCmd.Flags().StringVarP(&logRetailer, "retailer", "r", "", "retailer name (fuzzy matched)")
	logCmd.Flags().Int64VarP(&logQuantity, "quantity", "q", 0, "number of PODs gained or lost")
	logCmd.Flags().StringVarP(&logStatus, "status", "s", model.IntentPlanned, "planned or lost")
	logCmd.Flags().StringVarP(&logDate, "date", "d", "", "effective date, defaults to today")
	_ = logCmd.MarkFlagRequired("product")
	_ = logCmd.MarkFlagRequired("retailer")
	_ = logCmd.MarkFlagRequired("quantity")

	rootCmd.AddCommand(migrateCmd, masterDataCmd, logCmd, bulkAddCmd)
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func at(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
