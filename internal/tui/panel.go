package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/muurk/espcfg/internal/panel"
)

const (
	maxNotices = 3
	secretMask = "••••••"
)

var secretFields = []string{"adminPass1", "adminPass2", "apiKey", "mqttPassword", "pass"}

// Backend runs operations against the device panel.
type Backend interface {
	Call(ctx context.Context, fn func(p *panel.Panel) error) error
}

// opResultMsg reports the outcome of a panel operation
type opResultMsg struct {
	text string
	err  error
}

// row is one rendered line: a section heading or a field
type row struct {
	heading string
	field   int
}

// PanelModel is the control panel screen of one connected device.
type PanelModel struct {
	View  panel.View
	Host  string
	Ready bool

	Cursor      int // index into View.Fields
	Offset      int // first visible row
	ShowSecrets bool
	Notices     []string

	Editing bool
	Input   textinput.Model

	Confirm *ConfirmMsg

	Width  int
	Height int
	Help   help.Model
	Keys   panelKeyMap

	editKeys    editKeyMap
	confirmKeys confirmKeyMap
	backend     Backend
}

// NewPanelModel creates the panel screen for host.
func NewPanelModel(backend Backend, host string, showSecrets bool) PanelModel {
	input := textinput.New()
	input.CharLimit = 256
	input.Width = 40
	input.Prompt = "› "

	return PanelModel{
		Host:        host,
		Cursor:      -1,
		ShowSecrets: showSecrets,
		Input:       input,
		Help:        help.New(),
		Keys:        newPanelKeyMap(),
		editKeys:    newEditKeyMap(),
		confirmKeys: newConfirmKeyMap(),
		backend:     backend,
	}
}

// SetSize updates the screen dimensions
func (m *PanelModel) SetSize(width, height int) {
	m.Width = width
	m.Height = height
	m.Help.Width = width
}

// SetView replaces the rendered state and keeps the cursor on the same
// field when it still exists.
func (m *PanelModel) SetView(v panel.View) {
	var current string
	if f, ok := m.selected(); ok {
		current = f.Key
	}
	m.View = v
	m.Ready = true

	if _, idx, ok := lo.FindIndexOf(v.Fields, func(f panel.FieldView) bool {
		return f.Key == current && !f.Display
	}); ok {
		m.Cursor = idx
		return
	}
	m.Cursor = m.nextSelectable(-1, 1)
}

// AddNotice appends a notification, dropping the oldest ones.
func (m *PanelModel) AddNotice(text string) {
	m.Notices = append(m.Notices, text)
	if len(m.Notices) > maxNotices {
		m.Notices = m.Notices[len(m.Notices)-maxNotices:]
	}
}

func (m *PanelModel) selected() (panel.FieldView, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.View.Fields) {
		return panel.FieldView{}, false
	}
	return m.View.Fields[m.Cursor], true
}

// nextSelectable returns the next editable field from start in direction
// dir, or start when there is none.
func (m *PanelModel) nextSelectable(start, dir int) int {
	for i := start + dir; i >= 0 && i < len(m.View.Fields); i += dir {
		if !m.View.Fields[i].Display {
			return i
		}
	}
	if start >= len(m.View.Fields) {
		return -1
	}
	return start
}

// Update handles messages and updates the model
func (m *PanelModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ViewMsg:
		m.SetView(msg.View)
	case NoticeMsg:
		m.AddNotice(msg.Text)
	case ConfirmMsg:
		if m.Confirm != nil {
			// one question at a time; the loop is blocked on the first
			msg.Reply <- false
			return nil
		}
		m.Confirm = &msg
	case opResultMsg:
		if msg.err != nil {
			var verr *panel.ValidationError
			if !errors.As(msg.err, &verr) {
				m.AddNotice("Error: " + msg.err.Error())
			}
		} else if msg.text != "" {
			m.AddNotice(msg.text)
		}
	case tea.KeyMsg:
		switch {
		case m.Confirm != nil:
			return m.updateConfirm(msg)
		case m.Editing:
			return m.updateEditing(msg)
		default:
			return m.updateBrowsing(msg)
		}
	}
	return nil
}

func (m *PanelModel) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.confirmKeys.Yes):
		m.answer(true)
	case key.Matches(msg, m.confirmKeys.No):
		m.answer(false)
	}
	return nil
}

func (m *PanelModel) answer(yes bool) {
	m.Confirm.Reply <- yes
	m.Confirm = nil
}

func (m *PanelModel) updateEditing(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.editKeys.Cancel):
		m.Editing = false
		m.Input.Blur()
		return nil
	case key.Matches(msg, m.editKeys.Confirm):
		m.Editing = false
		m.Input.Blur()
		f, ok := m.selected()
		if !ok {
			return nil
		}
		return m.commit(f, m.Input.Value())
	}
	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return cmd
}

func (m *PanelModel) updateBrowsing(msg tea.KeyMsg) tea.Cmd {
	f, hasField := m.selected()

	switch {
	case key.Matches(msg, m.Keys.Up):
		m.Cursor = m.nextSelectable(m.Cursor, -1)
	case key.Matches(msg, m.Keys.Down):
		m.Cursor = m.nextSelectable(m.Cursor, 1)
	case key.Matches(msg, m.Keys.Help):
		m.Help.ShowAll = !m.Help.ShowAll
	case key.Matches(msg, m.Keys.Secrets):
		m.ShowSecrets = !m.ShowSecrets
	case key.Matches(msg, m.Keys.Edit):
		if hasField {
			return m.activate(f)
		}
	case key.Matches(msg, m.Keys.Save):
		if m.View.Mode == panel.WebModePassword.String() {
			return m.call("", func(p *panel.Panel) error { return p.SavePassword() })
		}
		return m.call("", func(p *panel.Panel) error { return p.Save() })
	case key.Matches(msg, m.Keys.Reset):
		return m.call("", func(p *panel.Panel) error { return p.Reset(true) })
	case key.Matches(msg, m.Keys.Reconnect):
		return m.call("", func(p *panel.Panel) error { return p.Reconnect(true) })
	case key.Matches(msg, m.Keys.APIKey):
		return m.call("New API key generated, save to apply it", func(p *panel.Panel) error {
			_, err := p.RegenerateAPIKey()
			return err
		})
	case key.Matches(msg, m.Keys.AddNet):
		return m.call("Network added", func(p *panel.Panel) error { return p.AddNetwork() })
	case key.Matches(msg, m.Keys.DelNet):
		if hasField && f.Group == panel.GroupNetworks {
			position := f.FieldKey().Index
			return m.call(fmt.Sprintf("Network %d deleted", position+1), func(p *panel.Panel) error {
				return p.DeleteNetwork(position)
			})
		}
	case hasField && f.Name == "rfbcode" && msg.String() == "l":
		k := f.FieldKey()
		return m.call("", func(p *panel.Panel) error { return p.RfbLearn(k.Index, k.Status) })
	case hasField && f.Name == "rfbcode" && msg.String() == "f":
		k := f.FieldKey()
		return m.call("", func(p *panel.Panel) error { return p.RfbForget(k.Index, k.Status) })
	}
	return nil
}

// activate runs the enter action of a field: toggles and cycles apply
// right away, text fields open the editor.
func (m *PanelModel) activate(f panel.FieldView) tea.Cmd {
	k := f.FieldKey()
	switch {
	case f.Name == "relayStatus":
		on := !f.Checked
		return m.call("", func(p *panel.Panel) error { return p.ToggleRelay(k.Index, on) })
	case f.Name == "rfbcode":
		return m.call("", func(p *panel.Panel) error { return p.RfbSend(k.Index, k.Status) })
	case f.Kind == panel.KindCheckbox.String():
		value := lo.Ternary(f.Checked, "off", "on")
		return m.call("", func(p *panel.Panel) error { return p.Edit(k, value) })
	case len(f.Options) > 0:
		value := nextOption(f.Options, f.Value)
		return m.call("", func(p *panel.Panel) error { return p.Edit(k, value) })
	}

	m.Editing = true
	m.Input.SetValue(f.Value)
	m.Input.CursorEnd()
	m.Input.EchoMode = textinput.EchoNormal
	if m.secret(f) {
		m.Input.EchoMode = textinput.EchoPassword
	}
	return m.Input.Focus()
}

// commit applies an edited text value. Live controls are sent right away,
// everything else waits for a save.
func (m *PanelModel) commit(f panel.FieldView, value string) tea.Cmd {
	k := f.FieldKey()
	switch f.Name {
	case "color":
		if strings.HasPrefix(value, "#") {
			return m.call("", func(p *panel.Panel) error { return p.SetColor(value) })
		}
		hsv, err := panel.ParseHSV(value)
		if err != nil {
			return resultCmd(err)
		}
		return m.call("", func(p *panel.Panel) error { return p.SetHSV(hsv) })
	case "brightness", "channel":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return resultCmd(fmt.Errorf("%s: %q is not a number", f.Label, value))
		}
		if f.Name == "brightness" {
			return m.call("", func(p *panel.Panel) error { return p.SetBrightness(n) })
		}
		return m.call("", func(p *panel.Panel) error { return p.SetChannel(k.Index, n) })
	}
	return m.call("", func(p *panel.Panel) error { return p.Edit(k, value) })
}

func nextOption(options []string, current string) string {
	idx := lo.IndexOf(options, current)
	return options[(idx+1)%len(options)]
}

func resultCmd(err error) tea.Cmd {
	return func() tea.Msg { return opResultMsg{err: err} }
}

// call runs fn on the session without blocking the UI. A question asked
// by fn comes back as a ConfirmMsg while the call is in flight.
func (m *PanelModel) call(done string, fn func(p *panel.Panel) error) tea.Cmd {
	backend := m.backend
	return func() tea.Msg {
		if err := backend.Call(context.Background(), fn); err != nil {
			return opResultMsg{err: err}
		}
		return opResultMsg{text: done}
	}
}

func (m *PanelModel) secret(f panel.FieldView) bool {
	return lo.Contains(secretFields, f.Name)
}

// sectionOf names the section a field is listed under
func sectionOf(f panel.FieldView) string {
	switch {
	case f.Display && f.Group == "":
		return "Status"
	case f.Group != "":
		return f.Group
	case f.Module != "":
		return f.Module
	default:
		return "General"
	}
}

func (m *PanelModel) rows() []row {
	var rows []row
	section := ""
	for i, f := range m.View.Fields {
		if s := sectionOf(f); s != section {
			section = s
			rows = append(rows, row{heading: s, field: -1})
		}
		rows = append(rows, row{field: i})
	}
	return rows
}

// ViewContent renders the panel screen content sized to the terminal.
func (m *PanelModel) ViewContent() string {
	if !m.Ready {
		return "\n" + SubtitleStyle.Render("Waiting for "+m.Host+"...")
	}

	var head []string
	title := m.View.Title.Heading
	if title == "" {
		title = m.Host
	}
	head = append(head, TitleStyle.Render(title))
	if m.View.Mode == panel.WebModePassword.String() {
		head = append(head, DirtyStyle.Render("Factory password in use: set a new admin password and press s"))
	}
	if n := m.View.Counts.Total; n > 0 {
		head = append(head, DirtyStyle.Render(fmt.Sprintf("%d unsaved change(s)", n)))
	}

	var tail []string
	if m.Confirm != nil {
		tail = append(tail, ConfirmBoxStyle.Render(m.Confirm.Question+"\n\n"+m.Help.View(m.confirmKeys)))
	}
	if m.Editing {
		if f, ok := m.selected(); ok {
			tail = append(tail, LabelStyle.Render(f.Label)+m.Input.View())
		}
	}
	for _, n := range m.Notices {
		tail = append(tail, NoticeStyle.Render("» "+n))
	}

	budget := contentHeight(m.Height) - lipgloss.Height(strings.Join(head, "\n")) - lipgloss.Height(strings.Join(tail, "\n")) - 1
	body := m.renderRows(max(budget, 3))

	parts := append(head, body)
	parts = append(parts, tail...)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderRows renders the window of rows that keeps the cursor visible
func (m *PanelModel) renderRows(height int) string {
	rows := m.rows()
	_, cursorRow, found := lo.FindIndexOf(rows, func(r row) bool { return r.heading == "" && r.field == m.Cursor })
	if !found {
		cursorRow = 0
	}

	if cursorRow < m.Offset {
		m.Offset = cursorRow
	}
	if cursorRow >= m.Offset+height {
		m.Offset = cursorRow - height + 1
	}
	m.Offset = max(0, min(m.Offset, len(rows)-height))

	end := min(len(rows), m.Offset+height)
	lines := lo.Map(rows[m.Offset:end], func(r row, _ int) string {
		if r.heading != "" {
			return SectionStyle.MarginTop(0).Render(strings.ToUpper(r.heading))
		}
		return m.renderField(m.View.Fields[r.field], r.field == m.Cursor)
	})
	return strings.Join(lines, "\n")
}

func (m *PanelModel) renderField(f panel.FieldView, selected bool) string {
	value := m.displayValue(f)
	style := ValueStyle
	if f.Dirty {
		style = DirtyStyle
		value += " *"
	}

	pointer := "  "
	label := LabelStyle.Render(f.Label)
	if selected {
		pointer = CursorStyle.Render("→ ")
		label = CursorStyle.Inherit(LabelStyle).Render(f.Label)
	}
	return pointer + label + style.Render(value)
}

func (m *PanelModel) displayValue(f panel.FieldView) string {
	switch {
	case f.Kind == panel.KindCheckbox.String():
		return lo.Ternary(f.Checked, "[x]", "[ ]")
	case len(f.Options) > 0:
		return "‹ " + f.Value + " ›"
	case m.secret(f) && !m.ShowSecrets && f.Value != "":
		return secretMask
	}
	return f.Value
}

// HelpView renders the help line for the current mode
func (m *PanelModel) HelpView() string {
	switch {
	case m.Confirm != nil:
		return m.Help.View(m.confirmKeys)
	case m.Editing:
		return m.Help.View(m.editKeys)
	}
	return m.Help.View(m.Keys)
}
