// votereport builds per-candidate territorial vote reports from polling
// location tally files.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seenimoa/votereport/internal/config"
	"github.com/seenimoa/votereport/internal/dataset"
	"github.com/seenimoa/votereport/internal/logging"
	"github.com/seenimoa/votereport/internal/report"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global state, set up in PersistentPreRunE.
var (
	cfg    *config.Config
	logger *zap.Logger
	cache  *dataset.Cache
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "votereport",
	Short: "Territorial vote reports for electoral candidates",
	Long: `votereport reads polling-location vote tallies, ranks every candidate
inside each electoral zone and composes a report for one candidate:
one page per zone, a competitive summary by territory, and a chart
with the total votes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside development.
		_ = godotenv.Load()

		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		zap.ReplaceGlobals(logger)

		cache = dataset.NewCacheFromConfig(cfg, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(racesCmd)
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(territoriesCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("votereport %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

// reportConfig maps the report section and applies the --format flag when
// the command has one.
func reportConfig(cmd *cobra.Command) (report.ReportConfig, error) {
	rc := report.ConfigFromSettings(cfg.Report, cfg.TerritoryTable())
	if f := cmd.Flags().Lookup("format"); f != nil && f.Value.String() != "" {
		format, err := report.ParseFormat(f.Value.String())
		if err != nil {
			return rc, err
		}
		rc.Format = format
	}
	return rc, nil
}
