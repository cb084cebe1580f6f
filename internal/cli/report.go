package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var summaryFuture bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the product by retailer POD matrix",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := reportService.Summary(cmd.Context(), summaryFuture)
		if err != nil {
			return err
		}
		if m.Empty() {
			cmd.Println("No POD data found for the selected view.")
			return nil
		}
		cmd.Println(matrixTable(m).Render())
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Write the current and future matrices to an Excel workbook",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exp, err := reportService.Export(cmd.Context())
		if err != nil {
			return err
		}
		path := exp.Filename
		if len(args) == 1 {
			path = args[0]
		}
		if err := os.WriteFile(path, exp.Data, 0o644); err != nil {
			return err
		}
		success(cmd, fmt.Sprintf("Successfully exported POD Tracker to '%s' (%s).", path, humanize.Bytes(uint64(len(exp.Data)))))
		if exp.URL != "" {
			cmd.Println("Archived copy: " + exp.URL)
		}
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Translate a question into a ledger query and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pq, err := chatService.Query(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		plan, err := json.Marshal(pq.Plan)
		if err != nil {
			return err
		}
		cmd.Println("Plan: " + string(plan))
		cmd.Println("--- Query Results ---")
		if len(pq.Result.Rows) == 0 {
			cmd.Println("No matching records found.")
			return nil
		}
		cmd.Println(resultTable(pq.Result).Render())
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the assistant a question about the ledger",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		answer, err := chatService.Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		cmd.Println(answer)
		return nil
	},
}

func init() {
	summaryCmd.Flags().BoolVarP(&summaryFuture, "future", "f", false, "include future-dated transactions")

	rootCmd.AddCommand(summaryCmd, exportCmd, queryCmd, askCmd)
}
