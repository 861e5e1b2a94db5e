package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/muurk/espcfg/internal/panel"
)

const maskedValue = "••••••"

// secretFields are masked unless the operator asks for them.
var secretFields = []string{"adminPass1", "adminPass2", "apiKey", "mqttPassword", "pass"}

// Printer provides methods for printing UI components to a writer.
// Scripted commands print everything through one.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(NewHeader(title, command, params).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(NewSuccessResult(title, details).SetWidth(p.width).Render())
}

// PrintWarning prints a warning box
func (p *Printer) PrintWarning(title string, details map[string]string) {
	p.Println(NewWarningResult(title, details).SetWidth(p.width).Render())
}

// PrintError prints an error result box. Troubleshooting tips default to
// the hints of a device error.
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// ViewOptions control FormatView.
type ViewOptions struct {
	Width       int
	Compact     bool // one name=value line per saved field
	ShowSecrets bool
}

// FormatView renders a panel view for the console. The detailed format has
// a title, the unsaved change counters and one section per module; the
// compact format prints saved fields as key=value.
func FormatView(v panel.View, opts ViewOptions) string {
	if opts.Compact {
		return formatCompact(v, opts)
	}

	width := clampWidth(opts.Width)
	var b strings.Builder

	title := v.Title.Window
	if title == "" {
		title = "(device not identified)"
	}
	b.WriteString(SectionTitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(RenderHorizontalDivider(width-2, "─"))
	b.WriteString("\n")

	if v.Mode == panel.WebModePassword.String() {
		b.WriteString(DirtyValueStyle.Render("The device still uses its factory password. Set a new one with 'espcfg password'."))
		b.WriteString("\n")
	}
	if v.Counts.Total > 0 {
		b.WriteString(DirtyValueStyle.Render(fmt.Sprintf("%d unsaved change(s)", v.Counts.Total)))
		b.WriteString("\n")
	}

	sections := lo.GroupBy(v.Fields, sectionOf)
	for _, name := range sectionOrder(v) {
		fields := sections[name]
		if len(fields) == 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(SectionTitleStyle.Render(strings.ToUpper(name)))
		b.WriteString("\n")
		for _, f := range fields {
			b.WriteString(formatField(f, opts))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func formatCompact(v panel.View, opts ViewOptions) string {
	var b strings.Builder
	for _, f := range v.Fields {
		if !f.Saved {
			continue
		}
		fmt.Fprintf(&b, "%s=%s\n", f.Key, fieldValue(f, opts))
	}
	return b.String()
}

func formatField(f panel.FieldView, opts ViewOptions) string {
	value := fieldValue(f, opts)
	if f.Dirty {
		value = DirtyValueStyle.Render(value + " " + DirtyMarker)
	} else {
		value = ResultValueStyle.Render(value)
	}
	return "  " + FieldLabelStyle.Render(f.Label) + " " + value
}

func fieldValue(f panel.FieldView, opts ViewOptions) string {
	if f.Kind == panel.KindCheckbox.String() {
		if f.Checked {
			return "on"
		}
		return "off"
	}
	if !opts.ShowSecrets && f.Value != "" && lo.Contains(secretFields, f.Name) {
		return maskedValue
	}
	return f.Value
}

func sectionOf(f panel.FieldView) string {
	switch {
	case f.Display:
		return "status"
	case f.Group != "":
		return f.Group
	case f.Module != "":
		return f.Module
	default:
		return "general"
	}
}

// sectionOrder lists status and general first, then groups and modules in
// the order their first field appears.
func sectionOrder(v panel.View) []string {
	order := []string{"status", "general"}
	for _, f := range v.Fields {
		order = append(order, sectionOf(f))
	}
	return lo.Uniq(order)
}

// Badge renders a short inline status label.
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render("[" + text + "]")
}
