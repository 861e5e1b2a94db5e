package panel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/muurk/espcfg/internal/protocol"
)

type fakeSender struct {
	sent [][]byte
	err  error
}

func (s *fakeSender) Send(msg []byte) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) commands(t *testing.T) []*protocol.Command {
	t.Helper()
	var out []*protocol.Command
	for _, raw := range s.sent {
		cmd, err := protocol.DecodeCommand(raw)
		require.NoError(t, err)
		out = append(out, cmd)
	}
	return out
}

type fakePrompter struct {
	answers   []bool
	questions []string
	notes     []string
}

func (p *fakePrompter) Confirm(question string) bool {
	p.questions = append(p.questions, question)
	if len(p.answers) == 0 {
		return false
	}
	answer := p.answers[0]
	p.answers = p.answers[1:]
	return answer
}

func (p *fakePrompter) Notify(text string) {
	p.notes = append(p.notes, text)
}

type scheduled struct {
	delay time.Duration
	fn    func()
}

type fakeScheduler struct {
	pending []scheduled
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) {
	s.pending = append(s.pending, scheduled{delay: d, fn: fn})
}

func (s *fakeScheduler) delays() []time.Duration {
	out := make([]time.Duration, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p.delay)
	}
	return out
}

// fire runs the calls pending right now. Calls they schedule stay queued.
func (s *fakeScheduler) fire() {
	due := s.pending
	s.pending = nil
	for _, p := range due {
		p.fn()
	}
}

type fakeReloader struct {
	reloads int
}

func (r *fakeReloader) Reload() { r.reloads++ }

type harness struct {
	panel    *Panel
	sender   *fakeSender
	prompter *fakePrompter
	sched    *fakeScheduler
	reloader *fakeReloader
}

func newHarness(layout Layout) *harness {
	h := &harness{
		sender:   &fakeSender{},
		prompter: &fakePrompter{},
		sched:    &fakeScheduler{},
		reloader: &fakeReloader{},
	}
	h.panel = New(Options{
		Layout:    layout,
		Sender:    h.sender,
		Prompter:  h.prompter,
		Scheduler: h.sched,
		Reloader:  h.reloader,
	})
	return h
}

func (h *harness) apply(t *testing.T, raw string) {
	t.Helper()
	u, err := protocol.DecodeUpdate([]byte(raw))
	require.NoError(t, err)
	h.panel.Apply(u)
}

func (h *harness) edit(t *testing.T, key, value string) {
	t.Helper()
	k, err := ParseFieldKey(key)
	require.NoError(t, err)
	require.NoError(t, h.panel.Edit(k, value))
}

func (h *harness) field(t *testing.T, key string) *Field {
	t.Helper()
	k, err := ParseFieldKey(key)
	require.NoError(t, err)
	f := h.panel.Registry().LookupKey(k)
	require.NotNil(t, f, "field %s", key)
	return f
}

var errSend = errors.New("socket closed")

// smallLayout is a compact catalog with one field per action class.
func smallLayout() Layout {
	return Layout{
		Fields: []FieldSpec{
			{Name: "hostname", Action: ActionReset},
			{Name: "ledLabel", Action: ActionNone},
			{Name: "mqttServer"},
			{Name: "useCSS", Kind: KindCheckbox, Action: ActionReload},
			{Name: "ntpServer1", Action: ActionReload},
			{Name: "apiKey"},
			{Name: "adminPass1"},
			{Name: "adminPass2"},
			{Name: "uptime", Display: true},
		},
		Groups: []GroupSpec{
			{
				Name: GroupNetworks,
				Variants: map[string][]FieldSpec{"": {
					{Name: "ssid", Action: ActionReconnect},
					{Name: "pass", Action: ActionReconnect},
				}},
				TabBase:   200,
				TabStride: 10,
			},
			{
				Name: GroupRelays,
				Variants: map[string][]FieldSpec{"": {
					{Name: "relayStatus", Kind: KindCheckbox, Transient: true, Action: ActionNone},
				}},
			},
		},
	}
}
