package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Prompter asks the operator yes/no questions on a console and prints
// device notifications. It is the operator for scripted commands.
type Prompter struct {
	// AssumeYes answers every question with yes without reading input.
	AssumeYes bool

	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm prints question and waits for an answer. Anything but "y" or
// "yes" declines, as does end of input.
func (p *Prompter) Confirm(question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	prompt := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	_, _ = fmt.Fprint(p.out, prompt.Render(question+" [y/N]: "))
	if p.AssumeYes {
		_, _ = fmt.Fprintln(p.out, "yes")
		return true
	}

	input, err := p.in.ReadString('\n')
	if err != nil && input == "" {
		_, _ = fmt.Fprintln(p.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Notify prints a device notification.
func (p *Prompter) Notify(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.out, NoticeStyle.Render("» "+text))
}

// ConfirmDangerousOperation displays a warning box and prompts the user to type
// "I AGREE" to proceed. Returns true if the user confirmed, false otherwise.
func (p *Prompter) ConfirmDangerousOperation(title string, warnings []string, disclaimer string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	width := GetTerminalWidth()

	titleLine := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true).
		Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", title))
	lines := []string{"", titleLine, ""}

	bulletStyle := lipgloss.NewStyle().Foreground(TextColor)
	for _, warning := range warnings {
		lines = append(lines, bulletStyle.Render("   • "+warning))
	}
	lines = append(lines, "")

	if disclaimer != "" {
		disclaimerStyle := lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true).
			Width(width - 12).
			PaddingLeft(3)
		lines = append(lines, disclaimerStyle.Render(disclaimer), "")
	}

	_, _ = fmt.Fprintln(p.out, WarningBoxStyle(width).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprintln(p.out)

	promptStyle := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	_, _ = fmt.Fprint(p.out, promptStyle.Render("To proceed, type \"I AGREE\" and press Enter: "))
	if p.AssumeYes {
		_, _ = fmt.Fprintln(p.out, "I AGREE")
		return true
	}

	input, _ := p.in.ReadString('\n')
	_, _ = fmt.Fprintln(p.out)
	if strings.TrimSpace(input) == "I AGREE" {
		return true
	}

	cancelStyle := lipgloss.NewStyle().Foreground(MutedColor)
	_, _ = fmt.Fprintln(p.out, cancelStyle.Render("  Operation cancelled."))
	return false
}

// FirmwareUpgradeConfirmation asks before flashing an image to the board.
func (p *Prompter) FirmwareUpgradeConfirmation(host, image string) bool {
	return p.ConfirmDangerousOperation(
		"FIRMWARE UPGRADE",
		[]string{
			"The image " + image + " will be written to " + host,
			"The board reboots once the upload is accepted",
			"Do not power the board off while it flashes",
			"An image built for another board can leave it unreachable",
		},
		"DISCLAIMER: This software is provided as-is, without warranty of any kind. "+
			"The authors accept no responsibility for any damage to your device.",
	)
}
