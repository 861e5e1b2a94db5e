package ui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

// Header represents a command header with title, command, and parameters.
// Scripted commands print one before talking to a device.
type Header struct {
	Title   string            // e.g., "FIRMWARE UPGRADE"
	Command string            // e.g., "espcfg upgrade"
	Params  map[string]string // e.g., {"Device": "kitchen.local", "Image": "espurna.bin"}
	Width   int               // Terminal width for responsive rendering
}

// NewHeader creates a new header with the given values
func NewHeader(title, command string, params map[string]string) *Header {
	return &Header{
		Title:   title,
		Command: command,
		Params:  params,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

// Render returns the styled header as a string
func (h *Header) Render() string {
	width := clampWidth(h.Width)

	titleLine := HeaderTitleStyle.Render(strings.ToUpper(h.Title))
	commandLine := HeaderCommandStyle.Render(h.Command)
	topSection := lipgloss.JoinVertical(lipgloss.Left, titleLine, commandLine)

	content := topSection
	if len(h.Params) > 0 {
		dividerWidth := width - 6 // Account for border and padding
		if dividerWidth < 10 {
			dividerWidth = 10
		}
		divider := RenderHorizontalDivider(dividerWidth, "─")
		content = lipgloss.JoinVertical(lipgloss.Left, topSection, divider, renderParams(h.Params))
	}

	return HeaderBorderStyle(width).Render(content)
}

// renderParams lists parameters sorted by key so output is stable.
func renderParams(params map[string]string) string {
	keys := lo.Keys(params)
	sort.Strings(keys)
	lines := lo.Map(keys, func(key string, _ int) string {
		return HeaderParamKeyStyle.Render(key+":") + " " + HeaderParamValueStyle.Render(params[key])
	})
	return strings.Join(lines, "\n")
}

// String implements fmt.Stringer
func (h *Header) String() string {
	return h.Render()
}
