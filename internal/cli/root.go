package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/keepsake/internal/config"
	"github.com/lazypower/keepsake/internal/engine"
	"github.com/lazypower/keepsake/internal/logging"
	"github.com/lazypower/keepsake/internal/store"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "keepsake",
	Short: "Memory that survives between AI coding sessions",
	Long: `Keepsake keeps a cross-session memory store for AI coding assistants.
Records fade on a weekly schedule unless they matter or get used:
searching a memory refreshes it, significant memories fade slowly, and
a bounded brief of everything still vivid is injected when a new
session starts.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(decayCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(briefCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(saveSessionCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// loadConfig reads ~/.keepsake/config.toml plus env overrides. A broken
// config file warns and falls back to defaults rather than blocking
// every command.
func loadConfig() config.Config {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v (using defaults)\n", err)
	}
	return cfg
}

// cliLogger builds the stderr console logger for CLI commands. Warn by
// default so command output stays clean; --verbose drops it to debug.
func cliLogger() *zap.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, "", true)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openEngine opens the configured database and wraps it in an engine.
// The caller owns the db handle and must Close it.
func openEngine(cfg config.Config) (*store.DB, *engine.Engine, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return nil, nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	eng := engine.New(db, cliLogger())
	eng.BriefMaxChars = cfg.Brief.MaxChars
	eng.SessionMaxBytes = cfg.Sessions.MaxBytes
	return db, eng, nil
}
