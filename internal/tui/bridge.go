package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/espcfg/internal/panel"
)

// ViewMsg carries a fresh panel view from the session loop.
type ViewMsg struct {
	View panel.View
}

// NoticeMsg is a notification from the device panel.
type NoticeMsg struct {
	Text string
}

// ConfirmMsg asks the operator a yes/no question. The answer must be sent
// on Reply exactly once.
type ConfirmMsg struct {
	Question string
	Reply    chan<- bool
}

// Sender is the part of tea.Program the bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge connects the session loop to the bubbletea program. It implements
// panel.Prompter: Confirm blocks the session loop until the operator has
// answered in the UI, or the bridge context ends.
type Bridge struct {
	ctx context.Context

	mu      sync.Mutex
	program Sender
}

var _ panel.Prompter = (*Bridge)(nil)

// NewBridge creates a bridge. Questions asked after ctx is done are
// answered "no".
func NewBridge(ctx context.Context) *Bridge {
	return &Bridge{ctx: ctx}
}

// Attach sets the program messages are delivered to.
func (b *Bridge) Attach(program Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.program = program
}

func (b *Bridge) send(msg tea.Msg) bool {
	b.mu.Lock()
	program := b.program
	b.mu.Unlock()
	if program == nil {
		return false
	}
	program.Send(msg)
	return true
}

// Confirm implements panel.Prompter.
func (b *Bridge) Confirm(question string) bool {
	if b.ctx.Err() != nil {
		return false
	}
	reply := make(chan bool, 1)
	if !b.send(ConfirmMsg{Question: question, Reply: reply}) {
		return false
	}
	select {
	case answer := <-reply:
		return answer
	case <-b.ctx.Done():
		return false
	}
}

// Notify implements panel.Prompter.
func (b *Bridge) Notify(text string) {
	b.send(NoticeMsg{Text: text})
}

// Publish forwards a panel view to the program. It is meant as the
// session OnChange callback.
func (b *Bridge) Publish(v panel.View) {
	b.send(ViewMsg{View: v})
}
