package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Device represents a board found on the network
type Device struct {
	// Hostname is the mDNS hostname without the trailing dot (e.g., "kitchen.local")
	Hostname string `json:"hostname" yaml:"hostname"`

	// IP is the device address, IPv4 when announced
	IP string `json:"ip" yaml:"ip"`

	// Port is the HTTP port of the web panel (typically 80)
	Port int `json:"port" yaml:"port"`

	// AppName is the firmware name from the app_name TXT record (e.g., "ESPURNA")
	AppName string `json:"appName" yaml:"appName"`

	// AppVersion is the firmware version from the app_version TXT record
	AppVersion string `json:"appVersion,omitempty" yaml:"appVersion,omitempty"`

	// Board is the target_board TXT record, when present
	Board string `json:"board,omitempty" yaml:"board,omitempty"`

	// Metadata contains every TXT record
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time `json:"discoveredAt" yaml:"discoveredAt"`
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	app := d.AppName
	if d.AppVersion != "" {
		app += " " + d.AppVersion
	}
	return fmt.Sprintf("%s (%s) at %s", d.Hostname, app, d.Address())
}

// Address returns host:port, with the port left out when it is 80.
func (d *Device) Address() string {
	if d.Port == 0 || d.Port == DefaultPort {
		return d.IP
	}
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// Name returns the hostname without the .local suffix.
func (d *Device) Name() string {
	return strings.TrimSuffix(d.Hostname, ".local")
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
