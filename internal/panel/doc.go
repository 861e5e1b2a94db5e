// Package panel implements the state engine of a device control panel.
//
// The device pushes its configuration and status as partial JSON updates.
// The panel applies them to a registry of named fields, tracks which fields
// the operator has changed since the last known device state, and decides
// which device-side effect (reboot, wifi reconnect or reload) a save needs.
//
// # Fields and Groups
//
// A Registry holds standalone fields and repeatable groups. A group such as
// "relays" or "networks" is a template cloned once per instance; every
// clone shares the logical field names and is told apart by its data index:
//
//	reg.MaterializeGroup(panel.GroupRelays, 2) // relayStatus#0, relayStatus#1
//	reg.MaterializeGroup(panel.GroupRelays, 4) // no-op, relays exist
//
// Materialization happens once per session. Re-announcing a group never
// changes its size.
//
// # Change Tracking
//
// Every write goes through the registry, which hands the field to the
// Tracker. The tracker compares the value to the field's snapshot and only
// moves a counter when the dirty flag flips:
//
//	Counts{Total: 2, Reset: 1}  // hostname and mqttServer edited
//
// Fields tagged ActionNone (relay switches, sliders) get a dirty flag but
// never count. Every applied update resets the snapshot because it
// describes the device's current configuration.
//
// # Follow-ups
//
// After a save, Classify picks one follow-up from the captured counters in
// fixed priority: reset, then reconnect, then reload.
//
// # Collaborators
//
// The panel sends through a Sender, asks and tells the operator through a
// Prompter, defers work through a Scheduler and restarts through a
// Reloader. None of them may call back into the panel concurrently; the
// session package runs all of it on one goroutine.
package panel
