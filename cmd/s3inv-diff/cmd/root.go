package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mbrode/s3-inv-diff/internal/logctx"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath   string
	analysisPath string
	resultsDir   string
	debug        bool
	human        bool
)

var logger zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "s3inv-diff",
	Short: "Cross-account S3 inventory reconciliation",
	Long: `s3inv-diff lists configured S3 locations across several accounts,
reconciles the per-account inventories into one merged table, and checks
copy and existence relationships between the accounts.

Each account is reachable only under its own credentials, so one run spans
several invocations: every invocation extracts one account and tells you
which credentials to switch to next. The final invocation reconciles and
analyzes in one go.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logctx.NewConfiguredLogger(debug, human)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("s3inv-diff %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "locations.yaml", "path to the location list")
	rootCmd.PersistentFlags().StringVar(&analysisPath, "analysis", "", "path to the analysis configuration (optional)")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results-dir", "results", "directory holding run outputs")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&human, "human", false, "human-friendly console logs instead of JSON")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
