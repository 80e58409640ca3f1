package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/storewatch"
)

func main() {
	// start mock store (see mock_server.go)
	go StartMockStore(":8081")
	time.Sleep(100 * time.Millisecond)

	probe := storewatch.HTTPProbe("http://localhost:8081/ping",
		storewatch.WithProbeClassifier(storewatch.JSONFieldClassifier("ok")),
	)

	// print every event alongside the default log line
	console := storewatch.NotifierFunc(func(ctx context.Context, ev storewatch.Event) error {
		fmt.Printf("[%s] %s: %s\n", ev.At.Format(time.TimeOnly), ev.Kind, ev.Message)
		return nil
	})

	m, err := storewatch.New(
		storewatch.WithProbe(probe),
		storewatch.WithTitle("Mock Store"),
		storewatch.WithDebounceWindow(30*time.Second),
		storewatch.WithNotifiers(storewatch.LogNotifier(slog.Default()), console),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   storewatch Demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:9999 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   The mock store flips up/down every 20-60s.          ║")
	fmt.Println("  ║   Failure alerts repeat at most every 30s.            ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		slog.Error("storewatch error", "error", err)
		os.Exit(1)
	}
}
