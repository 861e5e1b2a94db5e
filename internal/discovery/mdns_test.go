package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func espurnaEntry(host, ip string, port int, txt ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{HostName: host, Port: port, Text: txt}
	if ip != "" {
		e.AddrIPv4 = []net.IP{net.ParseIP(ip)}
	}
	return e
}

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name        string
		entry       *zeroconf.ServiceEntry
		wantNil     bool
		wantHost    string
		wantIP      string
		wantPort    int
		wantVersion string
	}{
		{
			name:        "firmware panel with IPv4",
			entry:       espurnaEntry("kitchen.local.", "192.168.1.20", 80, "app_name=ESPURNA", "app_version=1.13.5", "target_board=SONOFF_BASIC"),
			wantHost:    "kitchen.local",
			wantIP:      "192.168.1.20",
			wantPort:    80,
			wantVersion: "1.13.5",
		},
		{
			name:     "missing port defaults to 80",
			entry:    espurnaEntry("garage.local", "10.0.0.7", 0, "app_name=ESPURNA"),
			wantHost: "garage.local",
			wantIP:   "10.0.0.7",
			wantPort: 80,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "attic.local.",
				Port:     8080,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
				Text:     []string{"app_name=ESPURNA"},
			},
			wantHost: "attic.local",
			wantIP:   "fe80::1",
			wantPort: 8080,
		},
		{
			name:    "other http service",
			entry:   espurnaEntry("printer.local.", "192.168.1.50", 80, "path=/"),
			wantNil: true,
		},
		{
			name:    "no address",
			entry:   espurnaEntry("kitchen.local.", "", 80, "app_name=ESPURNA"),
			wantNil: true,
		},
		{
			name:    "no hostname",
			entry:   espurnaEntry("", "192.168.1.20", 80, "app_name=ESPURNA"),
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := scanner.parseServiceEntry(tt.entry)
			if tt.wantNil {
				if d != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", d)
				}
				return
			}
			require.NotNil(t, d)
			if d.Hostname != tt.wantHost {
				t.Errorf("Hostname = %q, want %q", d.Hostname, tt.wantHost)
			}
			if d.IP != tt.wantIP {
				t.Errorf("IP = %q, want %q", d.IP, tt.wantIP)
			}
			if d.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", d.Port, tt.wantPort)
			}
			if d.AppVersion != tt.wantVersion {
				t.Errorf("AppVersion = %q, want %q", d.AppVersion, tt.wantVersion)
			}
			if d.DiscoveredAt.IsZero() {
				t.Error("DiscoveredAt should be set")
			}
		})
	}
}

func TestScanner_AppFilter(t *testing.T) {
	scanner := NewScanner()
	scanner.AppName = "espurna"

	if d := scanner.parseServiceEntry(espurnaEntry("a.local.", "10.0.0.1", 80, "app_name=ESPURNA")); d == nil {
		t.Error("filter should be case-insensitive")
	}
	if d := scanner.parseServiceEntry(espurnaEntry("b.local.", "10.0.0.2", 80, "app_name=TASMOTA")); d != nil {
		t.Errorf("parseServiceEntry() = %v, want nil for other firmware", d)
	}
}

func fakeBrowse(entries ...*zeroconf.ServiceEntry) func(context.Context, chan<- *zeroconf.ServiceEntry) error {
	return func(ctx context.Context, out chan<- *zeroconf.ServiceEntry) error {
		go func() {
			for _, e := range entries {
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}
}

func TestScanner_Scan(t *testing.T) {
	scanner := NewScanner()
	scanner.Timeout = 200 * time.Millisecond
	scanner.browse = fakeBrowse(
		espurnaEntry("kitchen.local.", "192.168.1.20", 80, "app_name=ESPURNA"),
		espurnaEntry("printer.local.", "192.168.1.50", 80, "path=/"),
		espurnaEntry("attic.local.", "192.168.1.21", 80, "app_name=ESPURNA"),
		espurnaEntry("kitchen.local.", "192.168.1.20", 80, "app_name=ESPURNA"),
	)

	devices, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "attic.local", devices[0].Hostname)
	assert.Equal(t, "kitchen.local", devices[1].Hostname)
}

func TestScanner_ScanBrowseError(t *testing.T) {
	scanner := NewScanner()
	scanner.Timeout = 100 * time.Millisecond
	scanner.browse = func(context.Context, chan<- *zeroconf.ServiceEntry) error {
		return errors.New("no multicast interface")
	}

	_, err := scanner.Scan(context.Background())
	assert.Error(t, err)
}

func TestScanner_Find(t *testing.T) {
	scanner := NewScanner()
	scanner.Timeout = time.Second
	scanner.browse = fakeBrowse(
		espurnaEntry("attic.local.", "192.168.1.21", 80, "app_name=ESPURNA"),
		espurnaEntry("kitchen.local.", "192.168.1.20", 80, "app_name=ESPURNA"),
	)

	start := time.Now()
	d, err := scanner.Find(context.Background(), "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", d.IP)
	assert.Less(t, time.Since(start), scanner.Timeout, "Find returns as soon as the device answers")

	scanner.Timeout = 100 * time.Millisecond
	_, err = scanner.Find(context.Background(), "cellar.local")
	assert.Error(t, err)
}
