package session

import (
	"context"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/espcfg/internal/panel"
	"github.com/muurk/espcfg/internal/server"
	"github.com/muurk/espcfg/internal/transport"
)

// liveSession wires a session to the emulated device over a real
// WebSocket.
func liveSession(t *testing.T) (*Session, *server.Server, *fakePrompter) {
	t.Helper()
	srv, err := server.New(&server.Config{Profile: server.DefaultProfile()})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())

	prompter := &fakePrompter{}
	var s *Session
	client := transport.New(
		transport.WithBasicAuth("admin", "fibonacci"),
		transport.OnMessage(func(msg []byte) { s.Deliver(msg) }),
		transport.OnClose(func() { s.Disconnected() }),
	)
	s = New(Options{Layout: panel.DefaultLayout(), Transport: client, Prompter: prompter})

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-s.Done()
		_ = client.Close()
		ts.Close()
	})

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelConnect()
	require.NoError(t, s.Connect(connectCtx, ts.URL))
	require.NoError(t, s.WaitReady(connectCtx))
	return s, srv, prompter
}

func TestLiveInitialState(t *testing.T) {
	s, _, _ := liveSession(t)
	v, err := s.View(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ESPURNA 1.13.5", v.Title.Heading)
	assert.Equal(t, "espurna-emulated - ESPURNA 1.13.5", v.Title.Window)
	assert.Equal(t, 5, v.MaxNetworks)
	got, _ := fieldValue(v, "ssid#0")
	assert.Equal(t, "home", got)
	assert.Contains(t, v.Modules, "mqtt")
}

func TestLiveRelayToggle(t *testing.T) {
	s, srv, _ := liveSession(t)

	err := s.Call(context.Background(), func(p *panel.Panel) error { return p.ToggleRelay(1, true) })
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return slices.Equal(srv.Device().Relays(), []bool{false, true})
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLiveSave(t *testing.T) {
	s, srv, prompter := liveSession(t)

	err := s.Call(context.Background(), func(p *panel.Panel) error {
		if err := p.Edit(panel.FieldKey{Name: "hostname", Index: -1}, "kitchen"); err != nil {
			return err
		}
		return p.Save()
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return slices.Contains(prompter.notices(), "Changes saved")
	}, 2*time.Second, 10*time.Millisecond)
	got, _ := srv.Device().Setting("hostname")
	assert.Equal(t, "kitchen", got)
	ssid, _ := srv.Device().Setting("ssid0")
	assert.Equal(t, "home", ssid)
}

func TestLiveResetReportsDisconnect(t *testing.T) {
	s, srv, prompter := liveSession(t)

	err := s.Call(context.Background(), func(p *panel.Panel) error { return p.Reset(false) })
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return slices.Contains(prompter.notices(), disconnectedText)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, srv.Device().Reboots())
}
