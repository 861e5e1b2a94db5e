// Package session runs a device panel on a single goroutine.
//
// The panel has exactly one writer at a time. Inbound frames from the
// transport, operator actions from the TUI or CLI, and deferred follow-ups
// (the 1 s check after a save, the 5 s reload after a reset) are all queued
// onto the session loop:
//
//	s := session.New(session.Options{Layout: panel.DefaultLayout(), Transport: t, Prompter: pr})
//	go s.Run(ctx)
//	_ = s.Connect(ctx, "192.168.4.1")
//	_ = s.WaitReady(ctx)
//	err := s.Call(ctx, func(p *panel.Panel) error { return p.ToggleRelay(0, true) })
//
// A page reload is a new panel plus a new connection to the same host.
// Transport loss is reported to the operator; reconnecting is always an
// explicit call.
package session
