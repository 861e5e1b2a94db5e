package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/logging"
)

const (
	// ServiceType is the mDNS service the firmware registers its web panel under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the default HTTP port of the web panel
	DefaultPort = 80
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration

	// AppName keeps only devices announcing this firmware (case-insensitive).
	// Empty accepts any device with an app_name record.
	AppName string

	browse func(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

func (s *Scanner) browser() func(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error {
	if s.browse != nil {
		return s.browse
	}
	return func(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return fmt.Errorf("failed to create mDNS resolver: %w", err)
		}
		if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
			return fmt.Errorf("failed to browse for mDNS services: %w", err)
		}
		return nil
	}
}

// Scan discovers devices until the timeout expires or ctx is cancelled.
// Devices announced more than once are reported once, sorted by hostname.
func (s *Scanner) Scan(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	collected := make(chan []*Device, 1)

	go func() {
		seen := make(map[string]*Device)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					collected <- sortDevices(seen)
					return
				}
				if d := s.parseServiceEntry(entry); d != nil {
					seen[d.Hostname] = d
				}
			case <-ctx.Done():
				collected <- sortDevices(seen)
				return
			}
		}
	}()

	if err := s.browser()(ctx, entries); err != nil {
		return nil, err
	}

	<-ctx.Done()
	devices := <-collected
	logging.Debug("mDNS scan finished", zap.Int("devices", len(devices)))
	return devices, nil
}

// Find waits for the device with the given hostname (with or without
// ".local").
func (s *Scanner) Find(ctx context.Context, hostname string) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	want := strings.TrimSuffix(strings.TrimSuffix(hostname, "."), ".local")
	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Device, 1)

	go func() {
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				d := s.parseServiceEntry(entry)
				if d != nil && strings.EqualFold(d.Name(), want) {
					found <- d
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := s.browser()(ctx, entries); err != nil {
		return nil, err
	}

	select {
	case d := <-found:
		return d, nil
	case <-ctx.Done():
		select {
		case d := <-found:
			return d, nil
		default:
		}
		return nil, fmt.Errorf("device %s not found within %s", hostname, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Device
// Returns nil if the entry is not a firmware web panel
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil || entry.HostName == "" {
		return nil
	}

	metadata := make(map[string]string, len(entry.Text))
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	app := metadata["app_name"]
	if app == "" {
		return nil
	}
	if s.AppName != "" && !strings.EqualFold(app, s.AppName) {
		return nil
	}

	// Get IP address (prefer IPv4)
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Device{
		Hostname:     strings.TrimSuffix(entry.HostName, "."),
		IP:           ip,
		Port:         port,
		AppName:      app,
		AppVersion:   metadata["app_version"],
		Board:        metadata["target_board"],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func sortDevices(seen map[string]*Device) []*Device {
	out := make([]*Device, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })
	return out
}

// QuickScan performs a fast scan with a 3-second timeout
func QuickScan(ctx context.Context) ([]*Device, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.Scan(ctx)
}
