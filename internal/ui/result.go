package ui

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/muurk/espcfg/internal/deviceconfig"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Result represents a result box (success, failure, or warning)
type Result struct {
	Type            ResultType        // Success, failure, or warning
	Title           string            // e.g., "Backup downloaded"
	Details         map[string]string // Key-value details to display
	Error           error             // Error (for failure results)
	Troubleshooting []string          // Troubleshooting tips (for failure results)
	Width           int               // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box. Troubleshooting tips
// default to the hints of a device error.
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	if troubleshooting == nil {
		troubleshooting = hintTips(err)
	}
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// NewWarningResult creates a warning result box
func NewWarningResult(title string, details map[string]string) *Result {
	return &Result{
		Type:    ResultWarning,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail adds a detail key-value pair
func (r *Result) AddDetail(key, value string) *Result {
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	width := clampWidth(r.Width)

	lines := []string{""}
	switch r.Type {
	case ResultFailure:
		lines = append(lines, ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title)), "")
		if r.Error != nil {
			lines = append(lines, ErrorMessageStyle.Render("   Error: "+deviceconfig.GetShortErrorMessage(r.Error)), "")
		}
		if len(r.Troubleshooting) > 0 {
			lines = append(lines, r.renderTroubleshootingBox(width), "")
		}
		return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))

	case ResultWarning:
		title := lipgloss.NewStyle().Foreground(WarningColor).Bold(true).
			Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", r.Title))
		lines = append(lines, title, "")
		lines = append(lines, r.detailLines()...)
		lines = append(lines, "")
		return WarningBoxStyle(width).Render(strings.Join(lines, "\n"))

	default:
		lines = append(lines, SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title)), "")
		lines = append(lines, r.detailLines()...)
		lines = append(lines, "")
		return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
	}
}

func (r *Result) detailLines() []string {
	keys := lo.Keys(r.Details)
	sort.Strings(keys)
	return lo.Map(keys, func(key string, _ int) string {
		return ResultKeyStyle.Render(fmt.Sprintf("   %s:", key)) + " " + ResultValueStyle.Render(r.Details[key])
	})
}

// renderTroubleshootingBox renders the inner troubleshooting box
func (r *Result) renderTroubleshootingBox(width int) string {
	lines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
	for _, tip := range r.Troubleshooting {
		lines = append(lines, TroubleshootingItemStyle.Render("  • "+tip))
	}
	return TroubleshootingBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// hintTips turns the troubleshooting hint of a device error into bullet
// items. Other errors have no tips.
func hintTips(err error) []string {
	var devErr *deviceconfig.DeviceError
	if !errors.As(err, &devErr) {
		return nil
	}
	var tips []string
	for _, line := range strings.Split(deviceconfig.GetTroubleshootingHint(err), "\n") {
		if tip, ok := strings.CutPrefix(line, "  • "); ok {
			tips = append(tips, tip)
		}
	}
	return tips
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
