package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/storewatch"
)

// executeCmd runs the root command with args and returns captured stdout,
// stderr and any error.
func executeCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// writeConfig writes content to a config file in a temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestVersionCmd(t *testing.T) {
	out, _, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(out, "storewatch dev") {
		t.Errorf("output = %q, want version line", out)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level     string
		debugEnv  string
		wantDebug bool
		wantErr   bool
	}{
		{level: "", wantDebug: false},
		{level: "debug", wantDebug: true},
		{level: "WARN", wantDebug: false},
		{level: "", debugEnv: "1", wantDebug: true},
		{level: "info", debugEnv: "1", wantDebug: false},
		{level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.debugEnv, func(t *testing.T) {
			t.Setenv("DEBUG", tt.debugEnv)

			logger, err := newLogger(io.Discard, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("newLogger() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("newLogger() error = %v", err)
			}
			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	const key = "STOREWATCH_TEST_ENV_FILE_VAR"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("%s = %q, want from-file", key, got)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := loadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("loadEnvFile() error = %v, want nil for missing file", err)
	}
	if err := loadEnvFile(""); err != nil {
		t.Errorf("loadEnvFile(\"\") error = %v", err)
	}
}

func TestFlagOverrides(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Int("port", 0, "")
	cmd.Flags().Duration("interval", 0, "")
	cmd.Flags().Duration("debounce", 0, "")
	if err := cmd.Flags().Parse([]string{"--port", "9191", "--interval", "2s"}); err != nil {
		t.Fatal(err)
	}

	opts, err := flagOverrides(cmd)
	if err != nil {
		t.Fatalf("flagOverrides() error = %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("len(opts) = %d, want 2 (unset flags are skipped)", len(opts))
	}

	probe := storewatch.ProbeFunc(func(ctx context.Context) error { return nil })
	m, err := storewatch.New(append([]storewatch.Option{storewatch.WithProbe(probe)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m.Port() != 9191 {
		t.Errorf("Port() = %d, want 9191", m.Port())
	}
	if m.PollInterval() != 2*time.Second {
		t.Errorf("PollInterval() = %v, want 2s", m.PollInterval())
	}
	if m.DebounceWindow() != 5*time.Minute {
		t.Errorf("DebounceWindow() = %v, want default 5m", m.DebounceWindow())
	}
}

func TestFlagOverrides_NonPositive(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Int("port", 0, "")
	cmd.Flags().Duration("interval", 0, "")
	cmd.Flags().Duration("debounce", 0, "")
	if err := cmd.Flags().Parse([]string{"--debounce", "0s"}); err != nil {
		t.Fatal(err)
	}

	if _, err := flagOverrides(cmd); err == nil {
		t.Error("flagOverrides() expected error for zero debounce, got nil")
	}
}

func TestStartResult(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := startResult(nil, logger); err != nil {
		t.Errorf("startResult(nil) = %v", err)
	}

	startupErr := &storewatch.StartupError{Stage: storewatch.StageConnect, Err: errors.New("refused")}
	var got *storewatch.StartupError
	if err := startResult(startupErr, logger); !errors.As(err, &got) || got.Stage != storewatch.StageConnect {
		t.Errorf("startResult() = %v, want StartupError", err)
	}

	if err := startResult(errors.New("boom"), logger); err == nil || !strings.Contains(err.Error(), "monitor error") {
		t.Errorf("startResult() = %v, want wrapped monitor error", err)
	}
}

func TestRunServe_StoreUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close() // nothing listens any more

	configPath := writeConfig(t, `
store:
  driver: http
  url: `+url+`
`)

	_, stderr, err := executeCmd(t, "serve", "-c", configPath, "--port", "0", "--env-file", "")
	if err == nil {
		t.Fatal("serve command expected error for unreachable store, got nil")
	}

	var startupErr *storewatch.StartupError
	if !errors.As(err, &startupErr) || startupErr.Stage != storewatch.StageConnect {
		t.Errorf("error = %v, want connect StartupError", err)
	}
	if !strings.Contains(stderr, "startup failed") {
		t.Errorf("stderr missing startup log:\n%s", stderr)
	}
}
