// Package dashboard provides the embedded web UI assets for storewatch.
//
// This package uses Go's embed directive to include the dashboard HTML and
// JavaScript at compile time. This enables single-binary deployment
// without external asset files.
//
// The embedded assets are served by the server package at the root path ("/").
// Users of the storewatch library should not need to interact with this
// package directly.
package dashboard

import "embed"

// Assets is an embedded filesystem containing the dashboard web UI.
//
// The filesystem structure is:
//
//	assets/
//	  index.html    - Status page with inline CSS and JavaScript
//
// The page subscribes over a WebSocket at /socket-status and falls back to
// polling /status when WebSockets are unavailable.
//
//go:embed assets/*
var Assets embed.FS
