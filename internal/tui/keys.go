package tui

import "github.com/charmbracelet/bubbles/key"

// panelKeyMap defines key bindings for the panel screen
type panelKeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Edit       key.Binding
	Save       key.Binding
	Reset      key.Binding
	Reconnect  key.Binding
	Reload     key.Binding
	APIKey     key.Binding
	AddNet     key.Binding
	DelNet     key.Binding
	Secrets    key.Binding
	Help       key.Binding
	Disconnect key.Binding
	Quit       key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k panelKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Edit, k.Save, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k panelKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Edit, k.Save},
		{k.Reset, k.Reconnect, k.Reload, k.APIKey},
		{k.AddNet, k.DelNet, k.Secrets},
		{k.Disconnect, k.Help, k.Quit},
	}
}

func newPanelKeyMap() panelKeyMap {
	return panelKeyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k", "shift+tab"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j", "tab"), key.WithHelp("↓/j", "down")),
		Edit:       key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "edit/toggle")),
		Save:       key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "save")),
		Reset:      key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset board")),
		Reconnect:  key.NewBinding(key.WithKeys("W"), key.WithHelp("W", "reconnect wifi")),
		Reload:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		APIKey:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "new API key")),
		AddNet:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add network")),
		DelNet:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete network")),
		Secrets:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "show secrets")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Disconnect: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "devices")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// editKeyMap is active while a text field is being edited
type editKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k editKeyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Confirm, k.Cancel} }
func (k editKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// confirmKeyMap answers a question from the device panel
type confirmKeyMap struct {
	Yes key.Binding
	No  key.Binding
}

func (k confirmKeyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Yes, k.No} }
func (k confirmKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

func newDiscoveryKeyMap() discoveryKeyMap {
	return discoveryKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
		Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "enter host")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func newEditKeyMap() editKeyMap {
	return editKeyMap{
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func newConfirmKeyMap() confirmKeyMap {
	return confirmKeyMap{
		Yes: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
		No:  key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "no")),
	}
}
