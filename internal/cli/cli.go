package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pfrederiksen/run-events/internal/config"
	"github.com/pfrederiksen/run-events/internal/logger"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// dotEnvFile is loaded before the config file when present.
const dotEnvFile = ".env"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-events",
		Short: "Aggregate running events from Indian race listing sites",
		Long: `Scrapes running-event listings from several websites, normalizes and
deduplicates them, and serves the combined list over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "config.yaml", "Path to YAML config file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFetchCmd())

	return cmd
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

// loadConfig reads .env, then the config file named by --config, and
// installs a logger at the configured level writing to out.
func loadConfig(cmd *cobra.Command, out io.Writer) (*config.Config, error) {
	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(logger.New(level, out))

	return cfg, nil
}
