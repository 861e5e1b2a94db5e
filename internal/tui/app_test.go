package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	*directBackend
	connectErr error
	connected  []string
	reloads    int
	closes     int
}

func (s *fakeSession) Connect(_ context.Context, host string) error {
	s.connected = append(s.connected, host)
	return s.connectErr
}

func (s *fakeSession) Reload()      { s.reloads++ }
func (s *fakeSession) Close() error { s.closes++; return nil }

func newTestApp(t *testing.T, opts Options) (AppModel, *fakeSession) {
	t.Helper()
	sess := &fakeSession{directBackend: newDirectBackend(t, deviceState)}
	opts.Session = sess
	app := NewApp(opts)
	model, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 60})
	return model.(AppModel), sess
}

// step feeds msg to the app and returns the messages of the commands it
// started.
func step(app AppModel, msg tea.Msg) (AppModel, []tea.Msg) {
	model, cmd := app.Update(msg)
	app = model.(AppModel)
	return app, collect(cmd)
}

func find[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func TestAppDirectConnect(t *testing.T) {
	var remembered string
	app, sess := newTestApp(t, Options{
		Host:        "kitchen.local",
		OnConnected: func(host string) { remembered = host },
	})

	msgs := collect(app.Init())
	sel, ok := find[selectHostMsg](msgs)
	require.True(t, ok)

	app, msgs = step(app, sel)
	assert.Equal(t, ScreenConnecting, app.Screen)
	assert.Contains(t, app.View(), "Connecting to kitchen.local")

	done, ok := find[connectedMsg](msgs)
	require.True(t, ok)
	app, _ = step(app, done)

	assert.Equal(t, ScreenPanel, app.Screen)
	assert.Equal(t, []string{"kitchen.local"}, sess.connected)
	assert.Equal(t, "kitchen.local", remembered)

	app, _ = step(app, ViewMsg{View: sess.panel.View()})
	assert.True(t, app.Panel.Ready)
	assert.Contains(t, app.View(), "kitchen")
}

func TestAppConnectFailure(t *testing.T) {
	app, sess := newTestApp(t, Options{Host: "nowhere.local"})
	sess.connectErr = errors.New("dial tcp: no route to host")

	app, msgs := step(app, selectHostMsg{host: "nowhere.local"})
	failed, ok := find[connectFailedMsg](msgs)
	require.True(t, ok)

	app, _ = step(app, failed)
	assert.Equal(t, ScreenDiscovery, app.Screen)
	assert.Contains(t, app.View(), "no route to host")
}

func TestAppStaleConnectResultIgnored(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	app, _ = step(app, selectHostMsg{host: "b.local"})

	app, _ = step(app, connectedMsg{host: "a.local"})
	assert.Equal(t, ScreenConnecting, app.Screen)

	app, _ = step(app, connectFailedMsg{host: "a.local", err: errors.New("late")})
	assert.Equal(t, ScreenConnecting, app.Screen)
}

func connectedApp(t *testing.T) (AppModel, *fakeSession) {
	t.Helper()
	app, sess := newTestApp(t, Options{})
	app, _ = step(app, selectHostMsg{host: "kitchen.local"})
	app, _ = step(app, connectedMsg{host: "kitchen.local"})
	app, _ = step(app, ViewMsg{View: sess.panel.View()})
	require.Equal(t, ScreenPanel, app.Screen)
	return app, sess
}

func TestAppPanelKeys(t *testing.T) {
	t.Run("reload", func(t *testing.T) {
		app, sess := connectedApp(t)
		app, _ = step(app, keyType(tea.KeyCtrlR))
		assert.Equal(t, 1, sess.reloads)
		assert.False(t, app.Panel.Ready)
	})

	t.Run("disconnect", func(t *testing.T) {
		app, sess := connectedApp(t)
		app, _ = step(app, keyType(tea.KeyEsc))
		assert.Equal(t, 1, sess.closes)
		assert.Equal(t, ScreenDiscovery, app.Screen)
	})

	t.Run("quit", func(t *testing.T) {
		app, _ := connectedApp(t)
		_, cmd := app.Update(keyRunes("q"))
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
	})

	t.Run("q while editing is text", func(t *testing.T) {
		app, _ := connectedApp(t)
		moveTo(t, &app.Panel, "hostname")
		app, _ = step(app, keyType(tea.KeyEnter))
		require.True(t, app.Panel.Editing)

		app, _ = step(app, keyRunes("q"))
		assert.True(t, app.Panel.Editing)
		assert.Equal(t, "kitchenq", app.Panel.Input.Value())
	})
}

func TestAppConfirmOutsidePanelDeclined(t *testing.T) {
	app, _ := newTestApp(t, Options{})
	reply := make(chan bool, 1)

	app, _ = step(app, ConfirmMsg{Question: "Reset?", Reply: reply})

	assert.False(t, <-reply)
	assert.Nil(t, app.Panel.Confirm)
}

func TestAppRelayFromPanel(t *testing.T) {
	app, sess := connectedApp(t)
	moveTo(t, &app.Panel, "relayStatus#1")

	app, msgs := step(app, keyType(tea.KeyEnter))
	for _, m := range msgs {
		app, _ = step(app, m)
	}

	assert.False(t, sess.panel.Registry().Lookup("relayStatus", 1).Checked)
	assert.Len(t, sess.sender.messages(), 1)
}

func TestAppStartsDiscovery(t *testing.T) {
	scanner := &fakeScanner{}
	app, _ := newTestApp(t, Options{Scanner: scanner})

	start, ok := find[startDiscoveryMsg](collect(app.Init()))
	require.True(t, ok)

	app, msgs := step(app, start)
	assert.True(t, app.Discovery.Scanning)
	assert.Contains(t, app.View(), "SEARCHING FOR DEVICES")

	done, ok := find[scanCompleteMsg](msgs)
	require.True(t, ok)
	app, _ = step(app, done)
	assert.False(t, app.Discovery.Scanning)
	assert.Equal(t, 1, scanner.scans)
}
