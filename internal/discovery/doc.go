// Package discovery finds firmware web panels on the local network with mDNS.
//
// Boards register their panel under "_http._tcp" and describe themselves
// with TXT records:
//   - app_name: firmware name (e.g., "ESPURNA"), required
//   - app_version: firmware version
//   - target_board: board definition the image was built for
//
// Entries without an app_name record are other HTTP services and are
// ignored.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.AppName = "ESPURNA"
//	devices, err := scanner.Scan(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, d := range devices {
//	    fmt.Println(d)
//	}
//
// Find returns as soon as a single named board answers:
//
//	d, err := scanner.Find(ctx, "kitchen")
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Devices must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
