// Package logging provides structured logging for espcfg.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used across the panel, the websocket transport and the
// emulated device. Logging is silent unless a level is set.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (frame contents, ignored keys)
//   - Info: Normal operations (connections, commands, state changes)
//   - Warn: Non-fatal issues (dropped frames, unknown actions)
//   - Error: Failures (dial errors, write errors)
//
// # Structured Logging
//
// All log functions use structured fields:
//
//	logging.Info("Connected to device",
//	    zap.String("ws", "ws://espurna.local/ws"),
//	)
//
// # Specialized Logging
//
// Connection Logging:
//
//	logging.LogConnection(remoteAddr, "websocket_upgraded")
//	logging.LogConnection(remoteAddr, "websocket_closed")
//
// WebSocket Message Logging:
//
//	logging.LogWebSocketMessage(remoteAddr, "received", payload)
//	logging.LogWebSocketMessage(remoteAddr, "sent", payload)
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize(level); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// An empty level falls back to the ESPCFG_LOG_LEVEL environment variable.
// Logs go to stderr so command output on stdout stays machine readable.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. SetLogger is meant for
// test setup and must not race with logging calls.
package logging
