package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/espcfg/internal/panel"
)

// Screen represents the current screen in the application
type Screen int

const (
	ScreenDiscovery Screen = iota
	ScreenConnecting
	ScreenPanel
)

// DefaultConnectTimeout bounds the WebSocket handshake of a connect
const DefaultConnectTimeout = 10 * time.Second

// Session is the device session the app drives.
type Session interface {
	Backend
	Connect(ctx context.Context, host string) error
	Reload()
	Close() error
}

// Options configures the application
type Options struct {
	// Host connects right away and skips discovery
	Host string

	// Scanner lists devices on the discovery screen. Nil goes straight to
	// manual host entry.
	Scanner Scanner

	Session Session

	// OnConnected is called after a successful connect, off the UI loop
	OnConnected func(host string)

	ShowSecrets bool
}

type startDiscoveryMsg struct{}

type connectedMsg struct {
	host string
}

type connectFailedMsg struct {
	host string
	err  error
}

// AppModel is the top-level model routing between screens.
type AppModel struct {
	Screen Screen
	Width  int
	Height int

	Discovery DiscoveryModel
	Panel     PanelModel
	Spinner   spinner.Model

	host    string
	lastErr error
	opts    Options
}

// NewApp creates the application model.
func NewApp(opts Options) AppModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return AppModel{
		Screen:    ScreenDiscovery,
		Discovery: NewDiscoveryModel(opts.Scanner),
		Panel:     NewPanelModel(opts.Session, opts.Host, opts.ShowSecrets),
		Spinner:   s,
		opts:      opts,
	}
}

// Init starts discovery or the direct connect
func (m AppModel) Init() tea.Cmd {
	if m.opts.Host != "" {
		return func() tea.Msg { return selectHostMsg{host: m.opts.Host} }
	}
	return func() tea.Msg { return startDiscoveryMsg{} }
}

func (m *AppModel) connect(host string) tea.Cmd {
	m.Screen = ScreenConnecting
	m.host = host
	m.lastErr = nil
	m.Panel = NewPanelModel(m.opts.Session, host, m.Panel.ShowSecrets)
	m.Panel.SetSize(m.Width, m.Height)

	sess := m.opts.Session
	onConnected := m.opts.OnConnected
	return tea.Batch(m.Spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultConnectTimeout)
		defer cancel()
		if err := sess.Connect(ctx, host); err != nil {
			return connectFailedMsg{host: host, err: err}
		}
		if onConnected != nil {
			onConnected(host)
		}
		return connectedMsg{host: host}
	})
}

// Update routes messages to the active screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.Discovery.SetSize(msg.Width, msg.Height)
		m.Panel.SetSize(msg.Width, msg.Height)
		return m, nil

	case startDiscoveryMsg:
		return m, m.Discovery.Init()

	case selectHostMsg:
		return m, m.connect(msg.host)

	case connectedMsg:
		if msg.host == m.host && m.Screen == ScreenConnecting {
			m.Screen = ScreenPanel
		}
		return m, nil

	case connectFailedMsg:
		if msg.host != m.host {
			return m, nil
		}
		m.lastErr = msg.err
		m.Screen = ScreenDiscovery
		return m, nil

	case spinner.TickMsg:
		if m.Screen == ScreenConnecting {
			var cmd tea.Cmd
			m.Spinner, cmd = m.Spinner.Update(msg)
			return m, cmd
		}
		return m, m.Discovery.Update(msg)

	case ViewMsg, NoticeMsg, opResultMsg:
		return m, m.Panel.Update(msg)

	case ConfirmMsg:
		if m.Screen != ScreenPanel && m.Screen != ScreenConnecting {
			msg.Reply <- false
			return m, nil
		}
		return m, m.Panel.Update(msg)

	case scanCompleteMsg:
		return m, m.Discovery.Update(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m AppModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Screen {
	case ScreenDiscovery:
		return m, m.Discovery.Update(msg)

	case ScreenConnecting:
		if key.Matches(msg, m.Panel.Keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	p := &m.Panel
	if p.Confirm == nil && !p.Editing {
		switch {
		case key.Matches(msg, p.Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, p.Keys.Reload):
			m.opts.Session.Reload()
			p.Ready = false
			return m, nil
		case key.Matches(msg, p.Keys.Disconnect):
			_ = m.opts.Session.Close()
			m.Screen = ScreenDiscovery
			m.host = ""
			return m, nil
		}
	}
	return m, p.Update(msg)
}

// View renders the active screen inside the application container
func (m AppModel) View() string {
	var content, footer, window string

	switch m.Screen {
	case ScreenConnecting:
		content = "\n" + TitleStyle.Render(m.Spinner.View()+" Connecting to "+m.host+"...")
		footer = m.Panel.Help.View(m.Panel.Keys)
	case ScreenPanel:
		content = m.Panel.ViewContent()
		footer = m.Panel.HelpView()
		window = m.Panel.View.Title.Window
	default:
		content = m.Discovery.View()
		if m.lastErr != nil {
			content = ErrorStyle.Render("✗ "+m.lastErr.Error()) + "\n" + content
		}
		footer = m.Discovery.HelpView()
	}

	return RenderApplicationContainer(window, content, footer, m.Width, m.Height)
}

// CurrentView returns the last panel view received
func (m AppModel) CurrentView() panel.View {
	return m.Panel.View
}
