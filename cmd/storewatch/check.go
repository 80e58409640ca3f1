package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/storewatch"
	"github.com/jpalmerr/storewatch/config"
)

// checkCmd probes the configured store once.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check data store connectivity once",
	Long: `Run a single connectivity check against the configured data store.

No notifications are sent and no server is started.

Exit codes:
  0 - Store is reachable
  1 - Store is unreachable or the config is invalid

Example:
  storewatch check -c config.yaml`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	checkCmd.Flags().String("env-file", ".env", "dotenv file loaded before the config (ignored if missing)")
	_ = checkCmd.MarkFlagRequired("config")
}

func runCheck(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p, err := config.BuildProbe(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if c, ok := p.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	start := time.Now()
	if err := storewatch.Check(ctx, p, cfg.ProbeTimeout.Duration()); err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Store is reachable (%s, %s)\n",
		cfg.Store.Driver, time.Since(start).Round(time.Millisecond))
	return nil
}
