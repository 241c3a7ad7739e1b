package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/abhisek/cadence/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Adaptive practice scheduler",
	Long: `Cadence decides what a learner should practice next, at what difficulty,
and keeps served questions varied. Runs are stored in SQLite by default;
Redis and Postgres backends are available for shared deployments.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to config file (overrides CADENCE_CONFIG env var)")
	pf.String("db", "", "Path to SQLite database file (overrides CADENCE_DB env var)")
	pf.String("backend", "", "Store backend: sqlite, redis, postgres or memory")
	pf.String("store-url", "", "Redis or Postgres URL for the selected backend")
	pf.String("catalog", "", "Path to a YAML curriculum catalog")
	pf.String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(newCmd, listCmd, showCmd, deleteCmd, statusCmd)
	rootCmd.AddCommand(nextCmd, serveCmd, recordCmd, advanceCmd, jumpCmd, practiceCmd)
	rootCmd.AddCommand(exportCmd, importCmd, migrateCmd)
	rootCmd.AddCommand(statsCmd, eventsCmd, resetCmd, catalogCmd, versionCmd)
}

// loadConfig resolves the configuration with the usual precedence: flags,
// then CADENCE_* env vars, then the config file, then defaults. It also
// installs the configured logger as the slog default.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("db"); v != "" {
		cfg.Store.Path = v
	}
	if v, _ := flags.GetString("backend"); v != "" {
		cfg.Store.Backend = v
	}
	if v, _ := flags.GetString("store-url"); v != "" {
		cfg.Store.URL = v
	}
	if v, _ := flags.GetString("catalog"); v != "" {
		cfg.Catalog.Path = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	slog.SetDefault(cfg.Log.NewLogger(os.Stderr))
	return cfg, nil
}
