// Package tui is the interactive terminal control panel.
//
// The application has three screens:
//   - Discovery lists boards found over mDNS and accepts a host typed by
//     hand.
//   - Connecting shows progress while the WebSocket is opened.
//   - Panel renders every field of the device. Checkboxes and select
//     fields change on enter, text fields open an editor, and relay
//     switches are sent to the device immediately. Edits are kept until
//     saved with s.
//
// The bubbletea program and the device session run on separate
// goroutines. Session work is always started from a tea.Cmd, and the
// session talks back through a Bridge:
//
//	bridge := tui.NewBridge(ctx)
//	sess := session.New(session.Options{Prompter: bridge, OnChange: bridge.Publish, ...})
//	program := tea.NewProgram(tui.NewApp(tui.Options{Session: sess}), tea.WithAltScreen())
//	bridge.Attach(program)
//
// Questions from the panel, such as the follow-up after a save, block the
// session loop until they are answered in the UI.
package tui
