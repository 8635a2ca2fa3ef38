package cmd

import (
	"context"
	"fmt"
	"os"

	"kydx-console/config"
	"kydx-console/telemetry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile string
	logLevel   string
	version    string = "dev"

	cfg      *config.Config
	logger   *zap.Logger
	shutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kydx-console",
	Short: "Chat front end for the KYDxBot data analysis service",
	Long: `kydx-console drives conversations with the KYDxBot analysis backend.

Ask questions about your data, build charts and infographics through short
question wizards, summarize the conversation, and get a Director's Cut video
of the latest table.

Quick Start:
  kydx-console serve --port 8080     # Browser chat
  kydx-console chat                  # Terminal chat`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown(cmd.Context())
	},
}

// setup loads config, builds the logger and starts tracing.
func setup(ctx context.Context) error {
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg = config.Load(tempLogger, configFile)
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err = config.InitLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger with level %q: %w", cfg.LogLevel, err)
	}

	shutdown, err = telemetry.Init(ctx, telemetry.Config{Enabled: cfg.TracingEnabled}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	return nil
}

func teardown(ctx context.Context) error {
	defer config.Cleanup()
	if shutdown != nil {
		return shutdown(context.WithoutCancel(ctx))
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default: config.yaml in ., .. or ./config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
