package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/automl"
	cfgpkg "github.com/KaramelBytes/tabloom-cli/internal/config"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/logging"
	"github.com/KaramelBytes/tabloom-cli/internal/parser"
	"github.com/KaramelBytes/tabloom-cli/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile       string
	debug         bool
	flagLogFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "tabloom",
	Short: "Tabloom CLI: inspect, clean and explore tabular data",
	Long: `Tabloom parses CSV, delimited text and XLSX files, infers column types,
applies cleaning operations with a full change log, and lets you search, sort
and page through the result. It can also serve the same workflow as a JSON API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tabloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console or json (overrides config)")
}

func loadConfig() {
	if _, err := config(); err != nil {
		// Non-fatal: commands that need config report it again
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
	}
}

// config returns the loaded configuration with CLI overrides applied. It
// loads on first use, so commands also work without cobra initialisation.
func config() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if rootCmd.PersistentFlags().Changed("log-format") && flagLogFormat != "" {
		c.LogFormat = flagLogFormat
	}
	if debug {
		c.LogLevel = "debug"
	}
	cfg = c
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	c, err := config()
	if err != nil {
		return nil, err
	}
	return logging.New(c.LogLevel, c.LogFormat)
}

func openStore(ctx context.Context, logger *zap.Logger) (store.Store, error) {
	c, err := config()
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, store.Config{Driver: c.StoreDriver, DSN: c.StoreDSN, Dir: c.DataDir}, logger)
}

func newTrainer() (automl.Trainer, error) {
	c, err := config()
	if err != nil {
		return nil, err
	}
	return automl.New(c.Trainer, c.TrainerSeed)
}

// parseTimeout is the per-file parse deadline from config.
func parseTimeout() time.Duration {
	if c, err := config(); err == nil && c.ParseTimeoutSec > 0 {
		return time.Duration(c.ParseTimeoutSec) * time.Second
	}
	return 30 * time.Second
}

// loadTable parses a file from disk, detecting the format by extension.
func loadTable(ctx context.Context, path string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	ctx, cancel := context.WithTimeout(ctx, parseTimeout())
	defer cancel()
	return parser.Parse(ctx, f, path, "")
}
