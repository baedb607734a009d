package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information set by main.
var (
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chainstream",
	Short: "Chain state-change broadcaster",
	Long: `Chainstream fans a single feed of blockchain state-change
notifications (slot transitions, account writes, transactions, finalized
blocks) out to any number of subscribers over websocket and server-sent
events. Each subscriber declares its own filter and gets its own
flow-control budget; slow consumers are evicted, never waited on.`,
	SilenceUsage: true,
}

// Execute runs the root command with signal-driven graceful shutdown.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
