// Package server emulates an ESPurna board for development and tests.
//
// The emulated device serves the same surface as the firmware:
//   - GET /ws is the panel WebSocket. A client receives the full state on
//     connect and may send save and action commands.
//   - GET /config downloads the configuration backup.
//   - POST /upgrade accepts a firmware image in multipart field "upgrade"
//     and answers "OK" or an error text.
//
// Every route is protected with basic auth (user "admin", the current admin
// password).
//
// # Device Behaviour
//
//   - A save is answered with message 8 when something changed and 9 when
//     nothing did. Mismatched passwords are answered with message 7.
//   - Relay, color and channel commands are applied and broadcast to every
//     connected panel.
//   - reset and an accepted upgrade reboot the board: all panels are
//     disconnected and requests fail with 503 for Config.RestartDelay.
//   - reconnect disconnects every panel.
//   - restore replaces the settings and answers {"action":"reload"}, or
//     message 4 for a backup of other firmware.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{Port: 8080, Profile: server.DefaultProfile()})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Tests can mount Handler on an httptest.Server instead.
package server
