package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jpalmerr/storewatch"
	"github.com/jpalmerr/storewatch/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts monitoring and the status server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start monitoring the data store",
	Long: `Start monitoring the configured data store.

The server will:
  - Load environment variables from .env (if present)
  - Load configuration from the specified YAML file
  - Check the store once and refuse to start if it is unreachable
  - Poll the store and notify on failure and recovery
  - Serve live status on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  storewatch serve -c config.yaml
  storewatch serve -c config.yaml --port 9090 --interval 1s --debounce 10m`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().String("env-file", ".env", "dotenv file loaded before the config (ignored if missing)")
	serveCmd.Flags().Int("port", 0, "override the status server port")
	serveCmd.Flags().Duration("interval", 0, "override the poll interval")
	serveCmd.Flags().Duration("debounce", 0, "override the failure notification debounce window")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := loggerFor(cmd)
	if err != nil {
		return err
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"driver", cfg.Store.Driver,
		"notifiers", len(cfg.Notifiers),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := config.BuildOptions(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build monitor: %w", err)
	}
	overrides, err := flagOverrides(cmd)
	if err != nil {
		return err
	}
	opts = append(opts, overrides...)
	opts = append(opts, storewatch.WithLogger(logger))

	m, err := storewatch.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	logger.Info("starting monitor",
		"port", m.Port(),
		"poll_interval", m.PollInterval().String(),
		"debounce_window", m.DebounceWindow().String(),
	)

	// start monitor - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- m.Start(ctx)
	}()

	return waitForShutdown(ctx, errChan, logger)
}

// waitForShutdown waits for Start to return, bounding the wait once the
// context is cancelled.
func waitForShutdown(ctx context.Context, errChan <-chan error, logger *slog.Logger) error {
	select {
	case err := <-errChan:
		return startResult(err, logger)

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			return startResult(err, logger)
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

func startResult(err error, logger *slog.Logger) error {
	if err == nil {
		logger.Info("shutdown complete")
		return nil
	}

	var startupErr *storewatch.StartupError
	if errors.As(err, &startupErr) {
		logger.Error("startup failed", "stage", startupErr.Stage, "error", startupErr.Err)
		return startupErr
	}
	return fmt.Errorf("monitor error: %w", err)
}

// flagOverrides turns explicitly set flags into options that take precedence
// over the config file.
func flagOverrides(cmd *cobra.Command) ([]storewatch.Option, error) {
	var opts []storewatch.Option
	flags := cmd.Flags()

	if flags.Changed("port") {
		port, _ := flags.GetInt("port")
		opts = append(opts, storewatch.WithPort(port))
	}
	if flags.Changed("interval") {
		d, _ := flags.GetDuration("interval")
		if d <= 0 {
			return nil, fmt.Errorf("--interval must be positive, got %s", d)
		}
		opts = append(opts, storewatch.WithPollInterval(d))
	}
	if flags.Changed("debounce") {
		d, _ := flags.GetDuration("debounce")
		if d <= 0 {
			return nil, fmt.Errorf("--debounce must be positive, got %s", d)
		}
		opts = append(opts, storewatch.WithDebounceWindow(d))
	}

	return opts, nil
}

// loadEnvFile loads a dotenv file without overriding variables that are
// already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}
