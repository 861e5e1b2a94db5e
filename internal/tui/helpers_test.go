package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/muurk/espcfg/internal/panel"
	"github.com/muurk/espcfg/internal/protocol"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, string(msg))
	return nil
}

func (s *recordingSender) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type answeringPrompter struct {
	answer bool
	asked  []string
	notes  []string
}

func (p *answeringPrompter) Confirm(question string) bool {
	p.asked = append(p.asked, question)
	return p.answer
}

func (p *answeringPrompter) Notify(text string) { p.notes = append(p.notes, text) }

// directBackend runs panel calls synchronously on a real panel.
type directBackend struct {
	panel    *panel.Panel
	sender   *recordingSender
	prompter *answeringPrompter
}

func newDirectBackend(t *testing.T, state string) *directBackend {
	t.Helper()
	b := &directBackend{sender: &recordingSender{}, prompter: &answeringPrompter{}}
	b.panel = panel.New(panel.Options{
		Layout:   panel.DefaultLayout(),
		Sender:   b.sender,
		Prompter: b.prompter,
	})
	u, err := protocol.DecodeUpdate([]byte(state))
	require.NoError(t, err)
	b.panel.Apply(u)
	return b
}

func (b *directBackend) Call(_ context.Context, fn func(p *panel.Panel) error) error {
	return fn(b.panel)
}

const deviceState = `{
	"app_name":"ESPURNA","app_version":"1.13.5","hostname":"kitchen",
	"uptime":10,"wsAuth":true,"relayMode":"0",
	"relayStatus":[false,true],
	"maxNetworks":3,
	"wifi":[{"ssid":"home","pass":"hunter2"},{"ssid":"work","pass":"letmein"}]
}`

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyType(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// collect runs cmd and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// moveTo puts the cursor on the field with the given key.
func moveTo(t *testing.T, m *PanelModel, key string) panel.FieldView {
	t.Helper()
	for i, f := range m.View.Fields {
		if f.Key == key {
			m.Cursor = i
			return f
		}
	}
	t.Fatalf("no field %s in view", key)
	return panel.FieldView{}
}
