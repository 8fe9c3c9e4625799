package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/app"
	"github.com/Ramsey-B/clover/pkg/logging"
)

var (
	// Version is set by main
	Version = "dev"

	cfg    *config.Config
	logger ectologger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clover",
	Short: "Company entity matching service",
	Long: `Clover matches crawled company records against the business register,
adjudicates likely matches and maintains an idempotent store of unified
companies keyed by business number.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupCommand,
}

// Execute runs the root command and exits non-zero on failure
func Execute(version string) {
	Version = version

	if err := execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// execute stops listening for signals before it returns
func execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(runCmd, migrateCmd, seedCmd, serveCmd)
}

// setupCommand loads configuration and builds the logger before any command runs
func setupCommand(_ *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if cfg.Version == "dev" {
		cfg.Version = Version
	}

	logger, err = logging.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		return err
	}
	return nil
}

// startApp starts every configured dependency and returns a func that stops them
func startApp(ctx context.Context) (*app.App, func(), error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Failed to start dependencies")
		return nil, nil, fmt.Errorf("failed to start dependencies: %w", err)
	}

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout())
		defer cancel()
		if err := a.Close(ctx); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("Failed to stop dependencies cleanly")
		}
	}
	return a, stop, nil
}

func shutdownTimeout() time.Duration {
	if cfg.ShutdownTimeout > 0 {
		return cfg.ShutdownTimeout
	}
	return 30 * time.Second
}
