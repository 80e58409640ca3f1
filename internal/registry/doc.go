// Package registry tracks live status subscribers and fans messages out to them.
//
// This package is internal to storewatch. It is the only structure shared
// between the poll loop (which broadcasts on transitions) and the connection
// handlers (which subscribe and unsubscribe as clients come and go).
//
// The main components are:
//
//   - [Registry]: Topic-scoped subscriber sets with subscribe, broadcast and unsubscribe
//   - [Subscription]: One connected observer's handle and message channel
//   - [DeliveryError]: Why a subscriber was dropped
//
// Delivery is a non-blocking send into each subscriber's buffered channel.
// A subscriber whose buffer is full is considered broken and removed; its
// siblings and the broadcaster are unaffected. Connection handlers drain the
// channel and write to the network themselves.
package registry
