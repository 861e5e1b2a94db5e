package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/espcfg/internal/discovery"
)

type fakeScanner struct {
	devices []*discovery.Device
	err     error
	scans   int
}

func (s *fakeScanner) Scan(context.Context) ([]*discovery.Device, error) {
	s.scans++
	return s.devices, s.err
}

func scannedModel(t *testing.T, scanner *fakeScanner) *DiscoveryModel {
	t.Helper()
	m := NewDiscoveryModel(scanner)
	m.SetSize(100, 40)

	msgs := collect(m.Init())
	require.True(t, m.Scanning)
	done, ok := find[scanCompleteMsg](msgs)
	require.True(t, ok)
	m.Update(done)
	require.False(t, m.Scanning)
	return &m
}

func TestDiscoveryListsDevices(t *testing.T) {
	scanner := &fakeScanner{devices: []*discovery.Device{
		{Hostname: "attic.local", IP: "192.168.1.30", Port: 80, AppName: "ESPURNA", AppVersion: "1.13.5"},
		{Hostname: "kitchen.local", IP: "192.168.1.20", Port: 8080, AppName: "ESPURNA"},
	}}
	m := scannedModel(t, scanner)

	assert.Len(t, m.DeviceList.Items(), 2)
	assert.Contains(t, m.View(), "attic")

	m.Update(keyType(tea.KeyDown))
	msgs := collect(m.Update(keyType(tea.KeyEnter)))
	sel, ok := find[selectHostMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "192.168.1.20:8080", sel.host)
}

func TestDiscoveryEmptyAndError(t *testing.T) {
	tests := []struct {
		name    string
		scanner *fakeScanner
		want    string
	}{
		{"no devices", &fakeScanner{}, "No devices found"},
		{"scan error", &fakeScanner{err: errors.New("no multicast interface")}, "Scan failed: no multicast interface"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := scannedModel(t, tt.scanner)
			assert.Contains(t, m.View(), tt.want)
			assert.Nil(t, m.Update(keyType(tea.KeyEnter)))
		})
	}
}

func TestDiscoveryRescan(t *testing.T) {
	scanner := &fakeScanner{}
	m := scannedModel(t, scanner)

	cmd := m.Update(keyRunes("r"))
	require.NotNil(t, cmd)
	assert.True(t, m.Scanning)
	collect(cmd)
	assert.Equal(t, 2, scanner.scans)
}

func TestDiscoveryManualHost(t *testing.T) {
	m := scannedModel(t, &fakeScanner{})

	m.Update(keyRunes("m"))
	require.True(t, m.ManualMode)

	assert.Nil(t, m.Update(keyType(tea.KeyEnter)), "empty host is not accepted")

	m.HostInput.SetValue(" 10.0.0.9 ")
	msgs := collect(m.Update(keyType(tea.KeyEnter)))
	sel, ok := find[selectHostMsg](msgs)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.9", sel.host)
	assert.False(t, m.ManualMode)
}

func TestDiscoveryWithoutScanner(t *testing.T) {
	m := NewDiscoveryModel(nil)
	m.Init()
	assert.True(t, m.ManualMode)
	assert.Contains(t, m.View(), "Enter the device host")
}
