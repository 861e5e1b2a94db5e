package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/espcfg/internal/deviceconfig"
	"github.com/muurk/espcfg/internal/logging"
	"github.com/muurk/espcfg/internal/panel"
	"github.com/muurk/espcfg/internal/protocol"
	"github.com/muurk/espcfg/internal/transport"
)

// DefaultQueueSize is the number of events that may wait for the loop
const DefaultQueueSize = 64

const (
	disconnectedText = "Connection to the device was lost. Reconnect to continue."
	reconnectFailed  = "Could not reconnect to %s: %s"
)

// ErrClosed is returned once the session loop has stopped.
var ErrClosed = errors.New("session closed")

// Transport is the device channel the session drives.
type Transport interface {
	Connect(ctx context.Context, host string) (transport.Endpoints, error)
	Send(msg []byte) error
	Close() error
}

// Uploader sends firmware images to the device.
type Uploader interface {
	UploadFirmware(ctx context.Context, filename string, image io.Reader, size int64, progress deviceconfig.Progress) (string, error)
}

// Options wires a session.
type Options struct {
	Layout    panel.Layout
	Transport Transport
	Prompter  panel.Prompter
	Uploader  Uploader

	// OnChange receives a fresh view after every event. It runs on the
	// session loop and must not call back into the session synchronously.
	OnChange func(panel.View)

	// QueueSize overrides DefaultQueueSize
	QueueSize int
}

// Session owns one panel and serializes every access to it on a single
// goroutine. Inbound frames, operator calls and timers are queued as
// events and run one at a time by Run.
type Session struct {
	opts   Options
	events chan func()
	done   chan struct{}

	// loop-owned
	panel    *panel.Panel
	panelGen uint64
	timers   map[*time.Timer]struct{}

	mu         sync.Mutex
	host       string
	runCtx     context.Context
	ready      chan struct{}
	readyGen   uint64
	readyDone  bool
	closedOnce sync.Once
}

// New creates a session. Nothing happens until Run is started.
func New(opts Options) *Session {
	size := opts.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	s := &Session{
		opts:   opts,
		events: make(chan func(), size),
		done:   make(chan struct{}),
		timers: make(map[*time.Timer]struct{}),
		ready:  make(chan struct{}),
		runCtx: context.Background(),
	}
	s.panel = s.newPanel(0)
	return s
}

// Run processes events until ctx is done. It returns nil on cancellation.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	defer s.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-s.events:
			fn()
			s.changed()
		}
	}
}

func (s *Session) shutdown() {
	s.closedOnce.Do(func() { close(s.done) })
	for t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	logging.Debug("Session loop stopped")
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

// Host returns the host of the last Connect.
func (s *Session) Host() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.host
}

func (s *Session) post(fn func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- fn:
		return true
	case <-s.done:
		return false
	}
}

// Do queues fn to run on the session loop with the current panel.
func (s *Session) Do(fn func(p *panel.Panel)) {
	s.post(func() { fn(s.panel) })
}

// Call runs fn on the session loop and waits for its result.
func (s *Session) Call(ctx context.Context, fn func(p *panel.Panel) error) error {
	result := make(chan error, 1)
	if !s.post(func() { result <- fn(s.panel) }) {
		return ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// View returns a snapshot of the panel.
func (s *Session) View(ctx context.Context) (panel.View, error) {
	var v panel.View
	err := s.Call(ctx, func(p *panel.Panel) error {
		v = p.View()
		return nil
	})
	return v, err
}

// AfterFunc runs fn on the session loop once d has passed. Armed timers
// are not cancelled by later events; they are only dropped when the loop
// stops. Timers armed by a panel are also dropped once that panel has been
// replaced.
func (s *Session) AfterFunc(d time.Duration, fn func()) {
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.post(func() {
			delete(s.timers, t)
			fn()
		})
	})
	if s.timers != nil {
		s.timers[t] = struct{}{}
	}
}

// Deliver hands an inbound frame to the panel. Frames that do not decode
// are dropped.
func (s *Session) Deliver(msg []byte) {
	u, err := protocol.DecodeUpdate(msg)
	if err != nil {
		logging.Debug("Dropping malformed update", zap.Error(err), zap.Int("length", len(msg)))
		return
	}
	s.post(func() {
		s.panel.Apply(u)
		s.markReady(s.panelGen)
	})
}

// Disconnected reports the loss of the device channel to the operator.
func (s *Session) Disconnected() {
	s.post(func() { s.notify(disconnectedText) })
}

// Connect discards the panel state and opens the channel to host.
func (s *Session) Connect(ctx context.Context, host string) error {
	s.mu.Lock()
	s.host = host
	s.mu.Unlock()

	gen := s.resetReady()
	if !s.post(func() { s.rebuild(gen) }) {
		return ErrClosed
	}

	ep, err := s.opts.Transport.Connect(ctx, host)
	if err != nil {
		return err
	}
	logging.Info("Session connected", zap.String("host", host), zap.String("ws", ep.WS))
	return nil
}

// WaitReady blocks until the first update of the current connection has
// been applied.
func (s *Session) WaitReady(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
}

// Reload rebuilds the panel and reconnects to the same host.
func (s *Session) Reload() {
	s.post(s.reload)
}

// reload runs on the loop. The reconnect itself happens off the loop so
// inbound frames of the new connection can be queued meanwhile.
func (s *Session) reload() {
	host := s.Host()
	gen := s.resetReady()
	s.rebuild(gen)
	if host == "" {
		return
	}

	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()

	logging.Info("Reloading panel", zap.String("host", host))
	go func() {
		if _, err := s.opts.Transport.Connect(ctx, host); err != nil {
			logging.Warn("Reconnect after reload failed", zap.String("host", host), zap.Error(err))
			s.post(func() { s.notify(fmt.Sprintf(reconnectFailed, host, err)) })
		}
	}()
}

// Upgrade uploads a firmware image and reports the outcome through the
// panel. Transfer failures are reported with a short description in place
// of the device answer.
func (s *Session) Upgrade(ctx context.Context, filename string, image io.Reader, size int64, progress deviceconfig.Progress) error {
	if s.opts.Uploader == nil {
		return fmt.Errorf("firmware upload is not available")
	}
	body, err := s.opts.Uploader.UploadFirmware(ctx, filename, image, size, progress)
	if err != nil && !deviceconfig.IsUploadError(err) {
		body = deviceconfig.GetShortErrorMessage(err)
	}
	s.Do(func(p *panel.Panel) { p.UpgradeFinished(body) })
	return err
}

// Close stops the transport. The loop keeps running until its context is
// cancelled.
func (s *Session) Close() error {
	return s.opts.Transport.Close()
}

func (s *Session) newPanel(gen uint64) *panel.Panel {
	return panel.New(panel.Options{
		Layout:    s.opts.Layout,
		Sender:    s.opts.Transport,
		Prompter:  s.opts.Prompter,
		Scheduler: panelTimers{session: s, gen: gen},
		Reloader:  reloaderFunc(s.reload),
	})
}

func (s *Session) rebuild(gen uint64) {
	s.panel = s.newPanel(gen)
	s.panelGen = gen
}

func (s *Session) resetReady() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readyGen++
	s.ready = make(chan struct{})
	s.readyDone = false
	return s.readyGen
}

func (s *Session) markReady(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.readyGen || s.readyDone {
		return
	}
	s.readyDone = true
	close(s.ready)
}

func (s *Session) notify(text string) {
	if s.opts.Prompter != nil {
		s.opts.Prompter.Notify(text)
	}
}

func (s *Session) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange(s.panel.View())
	}
}

// panelTimers schedules on behalf of the panel built for gen. Callbacks of
// a panel that a reload or connect has since replaced are dropped.
type panelTimers struct {
	session *Session
	gen     uint64
}

func (t panelTimers) AfterFunc(d time.Duration, fn func()) {
	s := t.session
	s.AfterFunc(d, func() {
		if s.panelGen != t.gen {
			logging.Debug("Dropping timer of a replaced panel",
				zap.Uint64("generation", t.gen),
				zap.Duration("delay", d),
			)
			return
		}
		fn()
	})
}

// reloaderFunc lets the panel call reload directly on the loop it already
// runs on.
type reloaderFunc func()

func (f reloaderFunc) Reload() { f() }
