// Package storewatch provides an embeddable liveness monitor for a backing
// data store.
//
// storewatch polls the store's connectivity on a fixed interval, tracks
// available/unavailable transitions, notifies on failure with a time-based
// debounce so a long outage does not flood the sinks, notifies once on
// recovery, and pushes the current status to any number of live observers
// over WebSocket and Server-Sent Events.
//
// # Quick Start
//
// Create a probe and start the monitor with graceful shutdown:
//
//	p, _ := storewatch.PostgresProbe(ctx, "postgres://monitor@db:5432/app")
//	m, _ := storewatch.New(storewatch.WithProbe(p))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// storewatch uses the functional options pattern for configuration:
//
//	m, err := storewatch.New(
//	    storewatch.WithProbe(p),
//	    storewatch.WithPollInterval(time.Second),
//	    storewatch.WithDebounceWindow(10 * time.Minute),
//	    storewatch.WithPort(9090),
//	    storewatch.WithNotifier(storewatch.NewWebhookNotifier(url, nil)),
//	)
//
// # Probes
//
// A [Probe] performs one connectivity check. Built-in probes cover
// PostgreSQL ([PostgresProbe]), Redis ([RedisProbe]) and HTTP health
// endpoints ([HTTPProbe]) with pluggable response classifiers. Any function
// can be used through [ProbeFunc].
//
// # Notifications
//
// Failure events fire on the first failed check and then at most once per
// debounce window while the outage lasts. The window is measured from the
// last failure notification, and a notification is due once the full window
// has elapsed. A single recovery event closes the outage and resets the
// window. Built-in sinks: [LogNotifier] (the default), [WebhookNotifier] and
// [TelegramNotifier].
//
// Each sink is fed from its own bounded queue (see [WithNotifyQueue]). A slow
// or hung sink never delays polling, live subscribers or the other sinks;
// events it cannot take in time are dropped and counted in
// storewatch_notifications_dropped_total.
//
// # Live status
//
// The status server exposes:
//
//   - GET /status: the status line as plain text
//   - GET /api/status: the status as JSON
//   - GET /socket-status: WebSocket; send "status" to subscribe
//   - GET /api/sse: Server-Sent Events stream of the "status" topic
//   - GET /metrics: Prometheus metrics
//   - GET /: a small dashboard page
//
// Subscribers receive the current status on join and every transition
// afterwards. A subscriber that cannot keep up is disconnected without
// affecting others.
//
// # Architecture
//
// storewatch consists of several internal packages (under internal/):
//
//   - internal/monitor: Availability state machine and fixed-interval scheduler
//   - internal/probe: PostgreSQL, Redis and HTTP connectivity checks
//   - internal/registry: Topic subscriptions with non-blocking fan-out
//   - internal/status: Status message rendering
//   - internal/server: HTTP server with WebSocket, SSE and REST endpoints
//   - internal/metrics: Prometheus instrumentation
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package storewatch
