// Package transport is the duplex text channel to a device panel.
//
// A Client dials ws://<host>/ws, delivers each inbound frame to the
// OnMessage handler and writes outbound frames with Send. Connecting again
// always closes the previous connection first. A lost connection is
// reported and left closed; reconnecting is up to the caller.
package transport
