package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/espcfg/internal/deviceconfig"
	"github.com/muurk/espcfg/internal/panel"
	"github.com/muurk/espcfg/internal/protocol"
	"github.com/muurk/espcfg/internal/transport"
)

type fakeTransport struct {
	mu         sync.Mutex
	sent       [][]byte
	hosts      []string
	connectErr error
	closed     bool
}

func (f *fakeTransport) Connect(_ context.Context, host string) (transport.Endpoints, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hosts = append(f.hosts, host)
	if f.connectErr != nil {
		return transport.Endpoints{}, f.connectErr
	}
	return transport.ResolveEndpoints(host)
}

func (f *fakeTransport) Send(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), msg...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) connects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.hosts...)
}

func (f *fakeTransport) actions(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, raw := range f.sent {
		cmd, err := protocol.DecodeCommand(raw)
		require.NoError(t, err)
		if cmd.IsSave() {
			out = append(out, "config")
			continue
		}
		out = append(out, cmd.Action)
	}
	return out
}

type fakePrompter struct {
	mu     sync.Mutex
	accept bool
	asked  []string
	notes  []string
}

func (p *fakePrompter) Confirm(question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, question)
	return p.accept
}

func (p *fakePrompter) Notify(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notes = append(p.notes, text)
}

func (p *fakePrompter) questions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.asked...)
}

func (p *fakePrompter) notices() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.notes...)
}

type fakeUploader struct {
	body string
	err  error
}

func (u *fakeUploader) UploadFirmware(_ context.Context, _ string, image io.Reader, _ int64, _ deviceconfig.Progress) (string, error) {
	_, _ = io.Copy(io.Discard, image)
	return u.body, u.err
}

type fixture struct {
	session   *Session
	transport *fakeTransport
	prompter  *fakePrompter
	cancel    context.CancelFunc
}

func start(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{transport: &fakeTransport{}, prompter: &fakePrompter{}}
	if opts.Layout.Fields == nil {
		opts.Layout = panel.DefaultLayout()
	}
	opts.Transport = f.transport
	opts.Prompter = f.prompter
	f.session = New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() { _ = f.session.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-f.session.Done()
	})
	return f
}

func (f *fixture) view(t *testing.T) panel.View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := f.session.View(ctx)
	require.NoError(t, err)
	return v
}

func fieldValue(v panel.View, key string) (string, bool) {
	for _, f := range v.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func TestConnectAndDeliver(t *testing.T) {
	f := start(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, f.session.Connect(ctx, "192.168.4.1"))
	assert.Equal(t, []string{"192.168.4.1"}, f.transport.connects())
	assert.Equal(t, "192.168.4.1", f.session.Host())

	f.session.Deliver([]byte(`{"app_name":"ESPURNA","app_version":"1.13.5","hostname":"kitchen"}`))
	require.NoError(t, f.session.WaitReady(ctx))

	v := f.view(t)
	assert.Equal(t, "ESPURNA 1.13.5", v.Title.Heading)
	got, ok := fieldValue(v, "hostname")
	require.True(t, ok)
	assert.Equal(t, "kitchen", got)
}

func TestDeliverDropsMalformedFrames(t *testing.T) {
	f := start(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.session.Connect(ctx, "192.168.4.1"))

	f.session.Deliver([]byte(`{"hostname":`))
	f.session.Deliver([]byte(`[1,2,3]`))

	short, cancelShort := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, f.session.WaitReady(short), context.DeadlineExceeded)

	f.session.Deliver([]byte(`{"hostname":"kitchen"}`))
	require.NoError(t, f.session.WaitReady(ctx))
}

func TestOnChangeReceivesViews(t *testing.T) {
	views := make(chan panel.View, 16)
	f := start(t, Options{OnChange: func(v panel.View) { views <- v }})

	f.session.Deliver([]byte(`{"hostname":"kitchen"}`))

	select {
	case v := <-views:
		got, _ := fieldValue(v, "hostname")
		assert.Equal(t, "kitchen", got)
	case <-time.After(time.Second):
		t.Fatal("no view after delivery")
	}
}

func TestCallRunsOnLoop(t *testing.T) {
	f := start(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	f.session.Deliver([]byte(`{"relayStatus":[false,true]}`))
	err := f.session.Call(ctx, func(p *panel.Panel) error { return p.ToggleRelay(0, true) })
	require.NoError(t, err)
	assert.Equal(t, []string{protocol.ActionRelay}, f.transport.actions(t))

	sentinel := errors.New("nope")
	err = f.session.Call(ctx, func(*panel.Panel) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestSaveFollowUpUsesLoopTimers(t *testing.T) {
	f := start(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	f.session.Deliver([]byte(`{"hostname":"kitchen"}`))
	err := f.session.Call(ctx, func(p *panel.Panel) error {
		if err := p.Edit(panel.FieldKey{Name: "hostname", Index: -1}, "hall"); err != nil {
			return err
		}
		return p.Save()
	})
	require.NoError(t, err)
	assert.Empty(t, f.prompter.questions())

	// an update inside the window does not swallow the reboot prompt
	f.session.Deliver([]byte(`{"hostname":"hall"}`))

	require.Eventually(t, func() bool {
		return len(f.prompter.questions()) == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, panel.FollowUpReset.Prompt(), f.prompter.questions()[0])
	assert.Equal(t, []string{"config"}, f.transport.actions(t))
}

func TestReplacedPanelTimersAreDropped(t *testing.T) {
	f := start(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	require.NoError(t, f.session.Connect(ctx, "kitchen.local"))
	f.session.Deliver([]byte(`{"hostname":"kitchen"}`))
	err := f.session.Call(ctx, func(p *panel.Panel) error {
		if err := p.Edit(panel.FieldKey{Name: "hostname", Index: -1}, "hall"); err != nil {
			return err
		}
		return p.Save()
	})
	require.NoError(t, err)

	// the operator moves to another device before the follow-up fires
	require.NoError(t, f.session.Connect(ctx, "garage.local"))

	assert.Never(t, func() bool {
		return len(f.prompter.questions()) > 0
	}, panel.SaveFollowUpDelay+500*time.Millisecond, 50*time.Millisecond)
	assert.Equal(t, []string{"config"}, f.transport.actions(t))
	assert.Equal(t, []string{"kitchen.local", "garage.local"}, f.transport.connects())
}

func TestReloadReconnects(t *testing.T) {
	f := start(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, f.session.Connect(ctx, "kitchen.local"))
	f.session.Deliver([]byte(`{"hostname":"kitchen"}`))
	require.NoError(t, f.session.WaitReady(ctx))

	f.session.Reload()
	require.Eventually(t, func() bool {
		return len(f.transport.connects()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"kitchen.local", "kitchen.local"}, f.transport.connects())

	got, _ := fieldValue(f.view(t), "hostname")
	assert.Empty(t, got, "reload starts from an empty panel")

	short, cancelShort := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelShort()
	assert.Error(t, f.session.WaitReady(short))
}

func TestReloadFailureNotifies(t *testing.T) {
	f := start(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.session.Connect(ctx, "kitchen.local"))

	f.transport.mu.Lock()
	f.transport.connectErr = errors.New("connection refused")
	f.transport.mu.Unlock()

	f.session.Reload()
	require.Eventually(t, func() bool {
		return len(f.prompter.notices()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "Could not reconnect to kitchen.local: connection refused", f.prompter.notices()[0])
}

func TestDisconnectedNotifies(t *testing.T) {
	f := start(t, Options{})
	f.session.Disconnected()
	require.Eventually(t, func() bool {
		return len(f.prompter.notices()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, disconnectedText, f.prompter.notices()[0])
}

func TestUpgrade(t *testing.T) {
	tests := []struct {
		name     string
		uploader *fakeUploader
		wantErr  bool
		wantNote string
	}{
		{
			name:     "accepted",
			uploader: &fakeUploader{body: "OK"},
			wantNote: "Firmware image uploaded, board rebooting.",
		},
		{
			name:     "rejected",
			uploader: &fakeUploader{body: "Wrong board", err: deviceconfig.NewUploadError("Wrong board")},
			wantErr:  true,
			wantNote: "please try again (Wrong board).",
		},
		{
			name:     "transfer failed",
			uploader: &fakeUploader{err: deviceconfig.NewAuthError("denied")},
			wantErr:  true,
			wantNote: "(Authentication failed - check credentials).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := start(t, Options{Uploader: tt.uploader})
			err := f.session.Upgrade(context.Background(), "espurna.bin", strings.NewReader("\xe9"), 1, nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Eventually(t, func() bool {
				return len(f.prompter.notices()) == 1
			}, time.Second, 10*time.Millisecond)
			assert.Contains(t, f.prompter.notices()[0], tt.wantNote)
		})
	}
}

func TestUpgradeWithoutUploader(t *testing.T) {
	f := start(t, Options{})
	err := f.session.Upgrade(context.Background(), "a.bin", strings.NewReader(""), 0, nil)
	assert.Error(t, err)
}

func TestClosedSession(t *testing.T) {
	f := start(t, Options{})
	f.cancel()
	<-f.session.Done()

	err := f.session.Call(context.Background(), func(*panel.Panel) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.session.WaitReady(context.Background()), ErrClosed)
	assert.ErrorIs(t, f.session.Connect(context.Background(), "x"), ErrClosed)

	require.NoError(t, f.session.Close())
	assert.True(t, f.transport.closed)
}
