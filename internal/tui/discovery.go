package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/espcfg/internal/discovery"
)

// Scanner finds devices on the network.
type Scanner interface {
	Scan(ctx context.Context) ([]*discovery.Device, error)
}

// Messages for async operations
type scanCompleteMsg struct {
	devices []*discovery.Device
	err     error
}

// selectHostMsg asks the app to connect to a host.
type selectHostMsg struct {
	host string
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

func (d deviceItem) FilterValue() string {
	return d.device.Hostname + " " + d.device.IP
}

// deviceDelegate renders one device card per list item
type deviceDelegate struct{}

func (deviceDelegate) Height() int                         { return 4 }
func (deviceDelegate) Spacing() int                        { return 0 }
func (deviceDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(deviceItem)
	if !ok {
		return
	}
	d := di.device

	app := d.AppName
	if d.AppVersion != "" {
		app += " " + d.AppVersion
	}
	details := fmt.Sprintf("%s  •  %s", d.Address(), app)
	if d.Board != "" {
		details += "  •  " + d.Board
	}

	style := DeviceCardStyle
	name := "  " + d.Name()
	if index == m.Index() {
		style = SelectedDeviceCardStyle
		name = CursorStyle.Render("→ " + d.Name())
	}
	_, _ = fmt.Fprint(w, style.Render(name+"\n  "+SubtitleStyle.Render(details)))
}

// DiscoveryModel is the device picker: an mDNS scan plus manual host entry.
type DiscoveryModel struct {
	Scanning   bool
	DeviceList list.Model
	Err        error

	ManualMode bool
	HostInput  textinput.Model

	Width         int
	Height        int
	Spinner       spinner.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          discoveryKeyMap
	EditKeys      editKeyMap

	scanner Scanner
}

// NewDiscoveryModel creates a new discovery screen model
func NewDiscoveryModel(scanner Scanner) DiscoveryModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	hostInput := textinput.New()
	hostInput.Placeholder = "192.168.4.1 or espurna.local"
	hostInput.CharLimit = 253
	hostInput.Width = 40

	deviceList := list.New([]list.Item{}, deviceDelegate{}, 0, 0)
	deviceList.Title = "Discovered Devices"
	deviceList.SetShowStatusBar(false)
	deviceList.SetShowHelp(false)
	deviceList.SetFilteringEnabled(false)
	deviceList.Styles.Title = TitleStyle
	deviceList.KeyMap.Quit.SetEnabled(false)

	return DiscoveryModel{
		DeviceList: deviceList,
		HostInput:  hostInput,
		Spinner:    s,
		Help:       help.New(),
		Keys:       newDiscoveryKeyMap(),
		EditKeys:   newEditKeyMap(),
		scanner:    scanner,
	}
}

// Init starts the first scan
func (m *DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

func (m *DiscoveryModel) startScan() tea.Cmd {
	if m.scanner == nil {
		m.ManualMode = true
		return m.HostInput.Focus()
	}
	m.Scanning = true
	m.Err = nil
	m.ScanStartTime = time.Now()
	scanner := m.scanner
	return tea.Batch(m.Spinner.Tick, func() tea.Msg {
		devices, err := scanner.Scan(context.Background())
		return scanCompleteMsg{devices: devices, err: err}
	})
}

// SetSize updates the screen dimensions
func (m *DiscoveryModel) SetSize(width, height int) {
	m.Width = width
	m.Height = height
	m.DeviceList.SetSize(max(width, MinTerminalWidth)-6, contentHeight(height)-2)
	m.Help.Width = width
}

// Update handles messages and updates the model
func (m *DiscoveryModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateNormalMode(msg)

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.devices))
		for i, dev := range msg.devices {
			items[i] = deviceItem{device: dev}
		}
		return m.DeviceList.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return cmd
	}
	return nil
}

func (m *DiscoveryModel) updateNormalMode(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.Keys.Enter):
		if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
			host := item.device.Address()
			return func() tea.Msg { return selectHostMsg{host: host} }
		}
		return nil

	case key.Matches(msg, m.Keys.Rescan):
		if m.Scanning {
			return nil
		}
		m.DeviceList.SetItems(nil)
		return m.startScan()

	case key.Matches(msg, m.Keys.Manual):
		m.ManualMode = true
		m.HostInput.SetValue("")
		return m.HostInput.Focus()
	}

	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return cmd
}

func (m *DiscoveryModel) updateManualMode(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.EditKeys.Cancel):
		m.ManualMode = false
		m.HostInput.Blur()
		return nil

	case key.Matches(msg, m.EditKeys.Confirm):
		host := strings.TrimSpace(m.HostInput.Value())
		if host == "" {
			return nil
		}
		m.ManualMode = false
		m.HostInput.Blur()
		return func() tea.Msg { return selectHostMsg{host: host} }
	}

	var cmd tea.Cmd
	m.HostInput, cmd = m.HostInput.Update(msg)
	return cmd
}

// View renders the discovery screen content
func (m *DiscoveryModel) View() string {
	switch {
	case m.ManualMode:
		return "\n" + SubtitleStyle.Render("Enter the device host or IP address") + "\n\n  Host: " + m.HostInput.View() + "\n"
	case m.Scanning:
		elapsed := int(time.Since(m.ScanStartTime).Seconds())
		return lipgloss.JoinVertical(lipgloss.Left,
			"",
			TitleStyle.Render(m.Spinner.View()+" SEARCHING FOR DEVICES"),
			"",
			SubtitleStyle.Render(fmt.Sprintf("Browsing mDNS for ESPurna boards... %ds", elapsed)),
		)
	}
	return m.renderDeviceResults()
}

// HelpView renders the help line for the current mode
func (m *DiscoveryModel) HelpView() string {
	if m.ManualMode {
		return m.Help.View(m.EditKeys)
	}
	return m.Help.View(m.Keys)
}

func (m *DiscoveryModel) renderDeviceResults() string {
	if m.Err == nil && len(m.DeviceList.Items()) > 0 {
		return m.DeviceList.View()
	}

	var b strings.Builder
	b.WriteString("\n")
	if m.Err != nil {
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("✗ Scan failed: %v", m.Err)))
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render("⚠ No devices found on your network"))
	}
	b.WriteString("\n\n")
	b.WriteString("  Troubleshooting:\n")
	b.WriteString("    • Ensure the device is powered on and joined to your network\n")
	b.WriteString("    • mDNS must be enabled on the device\n")
	b.WriteString("    • Multicast traffic must not be blocked between you and the device\n")
	b.WriteString("    • Press 'm' to enter the address by hand\n")
	return b.String()
}

// SelectedDevice returns the highlighted device, if any
func (m *DiscoveryModel) SelectedDevice() *discovery.Device {
	if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return item.device
	}
	return nil
}
