package config

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	registryVersion        = 1
	defaultDiscoverTimeout = 5
	defaultUsername        = "admin"
)

// Registry represents the entire user configuration file.
// It remembers devices the operator has used and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by device hostname
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device is what we remember about a board between runs.
type Device struct {
	Host       string    `yaml:"host"`                  // Last address used to reach the panel
	AppName    string    `yaml:"app_name,omitempty"`    // Firmware name
	AppVersion string    `yaml:"app_version,omitempty"` // Firmware version
	Board      string    `yaml:"board,omitempty"`
	LastSeen   time.Time `yaml:"last_seen,omitempty"` // Last discovery/connection time
}

// Preferences represents application-wide user preferences.
// Passwords are never stored; they come from the environment or a prompt.
type Preferences struct {
	DefaultHost     string `yaml:"default_host,omitempty"` // Host used when none is given
	DiscoverTimeout int    `yaml:"discover_timeout"`       // mDNS discovery timeout in seconds
	AppFilter       string `yaml:"app_filter,omitempty"`   // Only list boards announcing this firmware
	Username        string `yaml:"username"`               // Basic auth user name
	MaskAPIKey      bool   `yaml:"mask_api_key"`           // Hide the API key in panel views
}

func defaultPreferences() *Preferences {
	return &Preferences{
		DiscoverTimeout: defaultDiscoverTimeout,
		AppFilter:       "ESPURNA",
		Username:        defaultUsername,
		MaskAPIKey:      true,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     registryVersion,
		Devices:     make(map[string]*Device),
		Preferences: defaultPreferences(),
	}
}

func normalizeName(hostname string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSuffix(hostname, "."), ".local"))
}

// GetDevice retrieves a remembered device by hostname, with or without
// ".local". Returns nil if the device is unknown.
func (r *Registry) GetDevice(hostname string) *Device {
	return r.Devices[normalizeName(hostname)]
}

// EnsureDevice returns the entry for hostname, creating it when missing.
func (r *Registry) EnsureDevice(hostname string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	name := normalizeName(hostname)
	if device, exists := r.Devices[name]; exists {
		return device
	}

	device := &Device{}
	r.Devices[name] = device
	return device
}

// Remember records that hostname answered at host running the given firmware.
func (r *Registry) Remember(hostname, host, appName, appVersion string) *Device {
	device := r.EnsureDevice(hostname)
	device.Host = host
	device.LastSeen = time.Now()
	if appName != "" {
		device.AppName = appName
	}
	if appVersion != "" {
		device.AppVersion = appVersion
	}
	return device
}

// Forget removes a remembered device. It reports whether it was known.
func (r *Registry) Forget(hostname string) bool {
	name := normalizeName(hostname)
	if _, ok := r.Devices[name]; !ok {
		return false
	}
	delete(r.Devices, name)
	if r.Preferences != nil && normalizeName(r.Preferences.DefaultHost) == name {
		r.Preferences.DefaultHost = ""
	}
	return true
}

// Names lists the remembered hostnames in order.
func (r *Registry) Names() []string {
	names := lo.Keys(r.Devices)
	sort.Strings(names)
	return names
}

// Resolve maps a remembered hostname to its last known host. Anything else
// is returned unchanged. An empty name resolves to the default host.
func (r *Registry) Resolve(name string) string {
	if name == "" && r.Preferences != nil {
		name = r.Preferences.DefaultHost
	}
	if device := r.GetDevice(name); device != nil && device.Host != "" {
		return device.Host
	}
	return name
}

// DiscoverTimeoutDuration returns the configured discovery timeout.
func (p *Preferences) DiscoverTimeoutDuration() time.Duration {
	if p == nil || p.DiscoverTimeout <= 0 {
		return defaultDiscoverTimeout * time.Second
	}
	return time.Duration(p.DiscoverTimeout) * time.Second
}
