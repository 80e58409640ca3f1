// Package main is the entry point for the storewatch CLI.
//
// storewatch can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	storewatch serve -c config.yaml    # Start monitoring
//	storewatch validate -c config.yaml # Validate configuration
//	storewatch check -c config.yaml    # Probe the store once
//	storewatch version                 # Show version info
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "storewatch",
	Short: "A liveness monitor for a backing data store",
	Long: `storewatch watches the connectivity of a data store.

It checks the store on a fixed interval, notifies on failure (at most once
per debounce window while the outage lasts) and once on recovery, and pushes
the current status to live observers over WebSocket and Server-Sent Events.

Quick start:
  1. Create a config file (storewatch.yaml)
  2. Run: storewatch serve -c storewatch.yaml
  3. Open http://localhost:9999 in your browser

Example config:
  port: 9999
  poll_interval: 500ms
  debounce_window: 5m
  store:
    driver: postgres
    dsn: ${DATABASE_URL}`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this storewatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "storewatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default info, or debug when DEBUG is set)")

	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}

// newLogger creates a JSON logger for CLI use.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl := slog.LevelInfo
	switch {
	case level != "":
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
	case os.Getenv("DEBUG") != "" || os.Getenv("debug") != "":
		lvl = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}

// loggerFor builds the logger from the persistent --log-level flag.
func loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return newLogger(cmd.ErrOrStderr(), level)
}
