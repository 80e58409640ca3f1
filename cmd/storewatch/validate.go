package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/storewatch/config"
)

// validateCmd validates a config file without starting the monitor.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a storewatch configuration file without starting the monitor.

This command parses the YAML, expands environment variables, and validates
all fields. It does not contact the data store (see 'storewatch check').
It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  storewatch validate -c config.yaml
  storewatch validate --config /etc/storewatch/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	validateCmd.Flags().String("env-file", ".env", "dotenv file loaded before the config (ignored if missing)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	sinks := make([]string, 0, len(cfg.Notifiers))
	for _, n := range cfg.Notifiers {
		sinks = append(sinks, n.Type)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:            %d\n", cfg.Port)
	fmt.Fprintf(out, "  Store:           %s\n", cfg.Store.Driver)
	fmt.Fprintf(out, "  Poll interval:   %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Debounce window: %s\n", cfg.DebounceWindow.Duration())
	fmt.Fprintf(out, "  Notifiers:       %s\n", strings.Join(sinks, ", "))

	return nil
}
