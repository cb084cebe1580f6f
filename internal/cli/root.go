// Package cli implements podctl, the operator command line of the POD tracker.
// It talks to the database directly through the ledger services.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"podtracker/internal/app"
	"podtracker/internal/config"
	"podtracker/internal/logger"
	"podtracker/internal/service"
)

// DefaultUser is recorded on transactions logged from the CLI.
const DefaultUser = "cli_user"

var (
	transactionService service.TransactionService
	reportService      service.ReportService
	chatService        service.ChatService

	closeServices = func() error { return nil }

	userID string
)

var rootCmd = &cobra.Command{
	Use:   "podctl",
	Short: "Operate the CPG POD tracker ledger",
	Long: `podctl logs POD gains and losses, bulk loads CSV files, prints the
distribution matrix and answers questions about the ledger.
It connects to the database configured by the DB_* environment variables.`,
	SilenceUsage:      true,
	PersistentPreRunE: connect,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", DefaultUser, "user recorded on logged transactions")
}

// Execute runs the root command and then closes whatever it connected to,
// including when the command failed.
func Execute(ctx context.Context) error {
	rootCmd.SetOut(os.Stdout)
	return execute(ctx)
}

func execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := shutdown(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// shutdown closes the opened services at most once.
func shutdown() error {
	closeFn := closeServices
	closeServices = func() error { return nil }
	return closeFn()
}

// connect opens the services unless they were already provided.
func connect(cmd *cobra.Command, _ []string) error {
	if transactionService != nil {
		return nil
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.LogLevel, "podctl")

	svcs, err := app.Open(cmd.Context(), cfg, log, nil)
	if err != nil {
		return err
	}
	transactionService = svcs.Transactions
	reportService = svcs.Reports
	chatService = svcs.Chat
	closeServices = svcs.Close
	return nil
}
