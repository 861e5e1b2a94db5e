package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/espcfg/internal/version"
)

// Application branding constants
const (
	AppName   = "ESPCFG CONTROL PANEL"
	GitHubURL = "github.com/muurk/espcfg"
)

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants for responsive terminal width
const (
	MinTerminalWidth  = 72 // Minimum supported terminal width
	MinTerminalHeight = 16
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red

	TextColor   = lipgloss.Color("#FFFFFF") // White
	SubtleColor = lipgloss.Color("#626262") // Gray
	BorderColor = lipgloss.Color("#7D56F4") // Purple (same as primary)
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			MarginTop(1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Width(24)

	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// DirtyStyle marks values edited but not saved
	DirtyStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	// Selected field row
	CursorStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// ConfirmBoxStyle frames a yes/no question from the device panel
	ConfirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(WarningColor).
			Padding(1, 2)

	DeviceCardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SubtleColor).
			Padding(0, 1)

	SelectedDeviceCardStyle = DeviceCardStyle.
				BorderForeground(SecondaryColor)
)

// buildHeaderContent creates header content with app name and the device
// window title, when connected.
func buildHeaderContent(window string) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + AppVersion())

	right := GitHubURL
	if window != "" {
		right = window
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", lipgloss.NewStyle().Foreground(SubtleColor).Render(right))
}

// RenderApplicationContainer is the wrapper for all screens: a header, the
// screen content and a help footer inside one border filling the terminal.
func RenderApplicationContainer(window, content, footerText string, terminalWidth, terminalHeight int) string {
	terminalWidth = max(terminalWidth, MinTerminalWidth)
	terminalHeight = max(terminalHeight, MinTerminalHeight)

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4). // Leave room for outer border
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(terminalWidth-4).
		Padding(0, 1)

	inner := lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(buildHeaderContent(window)),
		lipgloss.NewStyle().Width(terminalWidth-4).Render(content),
		footerStyle.Render(lipgloss.NewStyle().Foreground(SubtleColor).Render(footerText)),
	)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(terminalWidth - 2).
		Render(inner)

	return lipgloss.Place(terminalWidth, terminalHeight, lipgloss.Left, lipgloss.Top, bordered)
}

// contentHeight is the number of content lines the container leaves.
func contentHeight(terminalHeight int) int {
	// outer border 2, header 2, footer 2
	return max(terminalHeight, MinTerminalHeight) - 6
}
