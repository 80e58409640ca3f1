// Package monitor implements the availability state machine for storewatch.
//
// This package is internal to storewatch. It owns the monitored store's
// current and previous availability, the failure debounce clock, and the
// fixed-interval poll loop that drives them.
//
// The main components are:
//
//   - [Core]: Classifies probe outcomes and decides when a transition event fires
//   - [Scheduler]: Runs [Core.Tick] on a fixed interval from a single goroutine
//   - [State]: Point-in-time snapshot of the availability state
//   - [Event]: A failure or recovery transition worth notifying about
//
// Core state is mutated only from the poll loop. Other goroutines read it
// through [Core.Snapshot], which returns a copy.
package monitor
