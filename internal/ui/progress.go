package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/muurk/espcfg/internal/deviceconfig"
)

// StepStatus represents the current state of a step
type StepStatus int

const (
	StepPending  StepStatus = iota // Not yet started
	StepRunning                    // Currently executing
	StepComplete                   // Successfully completed
	StepFailed                     // Failed
	StepSkipped                    // Skipped
)

// Step represents a single step in a multi-step operation
type Step struct {
	Number  int        // Step number (1-based)
	Name    string     // Step description
	Status  StepStatus // Current status
	Message string     // Optional status message (e.g., "412 KiB", "retry 2")
}

// Progress is a step list with a bar for the running step, used by the
// upgrade, backup and restore commands.
type Progress struct {
	Label   string  // e.g., "Uploading firmware..."
	Steps   []Step  // List of steps
	Current int     // Current step (1-based)
	Percent float64 // Progress of the running step (0.0 - 1.0)
	Width   int     // Terminal width

	mu  sync.Mutex
	bar progress.Model
}

// NewProgress creates a progress display with one step per name.
func NewProgress(label string, names ...string) *Progress {
	p := &Progress{
		Label: label,
		Steps: lo.Map(names, func(name string, i int) Step {
			return Step{Number: i + 1, Name: name}
		}),
	}
	p.SetWidth(GetTerminalWidth())
	return p
}

// SetWidth sets the terminal width for responsive rendering
func (p *Progress) SetWidth(width int) *Progress {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Width = width
	barWidth := width - 20 // Leave room for percentage and step count
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(barWidth),
	)
	return p
}

// UpdateStep updates a specific step's status and optional message
func (p *Progress) UpdateStep(stepNumber int, status StepStatus, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if stepNumber < 1 || stepNumber > len(p.Steps) {
		return
	}
	step := &p.Steps[stepNumber-1]
	step.Status = status
	step.Message = message

	switch status {
	case StepRunning:
		if p.Current != stepNumber {
			p.Percent = 0
		}
		p.Current = stepNumber
	case StepComplete, StepSkipped:
		if p.Current == stepNumber {
			p.Percent = 1
		}
	}
}

// StartStep marks a step as running
func (p *Progress) StartStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepRunning, message)
}

// CompleteStep marks a step as complete
func (p *Progress) CompleteStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepComplete, message)
}

// FailStep marks a step as failed
func (p *Progress) FailStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepFailed, message)
}

// SkipStep marks a step as skipped
func (p *Progress) SkipStep(stepNumber int, message string) {
	p.UpdateStep(stepNumber, StepSkipped, message)
}

// SetPercent sets the progress of the running step.
func (p *Progress) SetPercent(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Percent = max(0, min(percent, 1))
}

// UploadReporter returns a deviceconfig.Progress that advances the bar and
// redraws it on w.
func (p *Progress) UploadReporter(w io.Writer) deviceconfig.Progress {
	return func(sent, total int64) {
		if total <= 0 {
			return
		}
		p.SetPercent(float64(sent) / float64(total))
		_, _ = fmt.Fprint(w, "\r"+p.BarLine())
	}
}

// Render returns the styled progress display as a string
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}
	b.WriteString(p.BarLine())
	b.WriteString("\n\n")

	p.mu.Lock()
	lines := lo.Map(p.Steps, func(step Step, _ int) string {
		return p.renderStepLine(step)
	})
	p.mu.Unlock()
	b.WriteString(strings.Join(lines, "\n"))

	return b.String()
}

// BarLine renders the bar of the running step with its percentage and the
// step counter.
func (p *Progress) BarLine() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	barView := p.bar.ViewAs(p.Percent)
	percentStr := fmt.Sprintf("%3.0f%%", p.Percent*100)
	stepStr := fmt.Sprintf("[%d/%d]", p.Current, len(p.Steps))

	return lipgloss.NewStyle().
		PaddingLeft(2).
		Render(fmt.Sprintf("%s  %s  %s", barView, percentStr, stepStr))
}

// renderStepLine renders a single step line
func (p *Progress) renderStepLine(step Step) string {
	prefix := fmt.Sprintf("  [%d/%d]", step.Number, len(p.Steps))

	var marker string
	var style lipgloss.Style
	switch step.Status {
	case StepComplete:
		marker, style = StepMarkerComplete, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = "⊘", StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(" ")
	b.WriteString(style.Render(step.Name))

	// Keep markers in one column
	padding := 45 - lipgloss.Width(step.Name)
	if padding < 1 {
		padding = 1
	}
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(style.Render(marker))

	if step.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + step.Message + ")"))
	}

	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
