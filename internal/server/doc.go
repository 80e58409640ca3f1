// Package server provides the HTTP server for the storewatch dashboard and API.
//
// This package is internal to storewatch and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML/JS dashboard at "/"
//   - Status query: Plain-text status line at "/status" for polling clients
//   - REST API: JSON endpoint at "/api/status" for the current status
//   - Server-Sent Events: Real-time updates at "/api/sse"
//   - WebSocket: Topic subscriptions at "/socket-status"
//   - Metrics: Prometheus exposition at "/metrics"
//
// Routing uses chi with request-id and panic-recovery middleware. The server
// supports graceful shutdown via context cancellation, with a 5-second
// timeout for in-flight requests.
//
// Users of the storewatch library should not need to interact with this
// package directly. The server is started automatically by [storewatch.Monitor.Start].
package server
