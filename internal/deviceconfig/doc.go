// Package deviceconfig covers the plain HTTP side of a device panel.
//
// The WebSocket carries settings and commands; two operations bypass it:
//   - GET /config downloads the configuration backup (a JSON object)
//   - POST /upgrade uploads a firmware image as multipart field "upgrade";
//     the device answers "OK" or an error text
//
// # Usage Example
//
//	client, err := deviceconfig.NewClient("192.168.4.1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.SetAuth("admin", password)
//
//	raw, err := client.DownloadBackup(ctx)
//
// # Snapshots
//
// SnapshotStore keeps dated backups per device on disk. The restore command
// saves one with SnapshotBeforeRestore before overwriting the device
// settings, and VerifyRestore checks afterwards that the device carries
// every restored setting.
//
// # Error Handling
//
// Failures are returned as *DeviceError with a type (network, timeout,
// auth, HTTP, parse, upload, validation) that GetShortErrorMessage and
// GetTroubleshootingHint turn into operator text. Idempotent requests are
// retried with exponential backoff; uploads never are.
package deviceconfig
