package deviceconfig

import (
	"fmt"
	"strings"
)

// Summary returns a one-line summary of the backup
func (b *BackupInfo) Summary() string {
	name := b.App
	if name == "" {
		name = "unknown firmware"
	}
	if b.Version != "" {
		name += " " + b.Version
	}
	host := b.Hostname
	if host == "" {
		host = "(no hostname)"
	}
	return fmt.Sprintf("%s backup of %s, %d setting(s)", name, host, len(b.Keys))
}

// FormatDetailed returns the backup identity and the names of the
// settings it would restore, wrapped to width columns.
func (b *BackupInfo) FormatDetailed(width int) string {
	var sb strings.Builder

	sb.WriteString("=== Backup ===\n")
	sb.WriteString(fmt.Sprintf("Firmware: %s %s\n", orNone(b.App), b.Version))
	sb.WriteString(fmt.Sprintf("Hostname: %s\n", orNone(b.Hostname)))
	if b.Path != "" {
		sb.WriteString(fmt.Sprintf("File:     %s\n", b.Path))
	}
	if !b.Taken.IsZero() {
		sb.WriteString(fmt.Sprintf("Taken:    %s\n", b.Taken.Format("2006-01-02 15:04:05")))
	}
	sb.WriteString(fmt.Sprintf("Settings: %d\n", len(b.Keys)))
	for _, line := range wrapWords(b.Keys, width-2) {
		sb.WriteString("  " + line + "\n")
	}

	return sb.String()
}

// FormatSnapshotList renders stored snapshots newest first.
func FormatSnapshotList(list []*BackupInfo) string {
	if len(list) == 0 {
		return "No snapshots stored\n"
	}
	var sb strings.Builder
	for i := len(list) - 1; i >= 0; i-- {
		sb.WriteString(fmt.Sprintf("%s  %s\n", list[i].Taken.Format("2006-01-02 15:04:05"), list[i].Path))
	}
	return sb.String()
}

// FormatVerification renders a restore verification for the console
func FormatVerification(r *VerificationResult) string {
	var sb strings.Builder
	sb.WriteString(r.String())
	sb.WriteString("\n")
	for _, m := range r.Mismatches {
		sb.WriteString("  • " + m + "\n")
	}
	return sb.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func wrapWords(words []string, width int) []string {
	if width < 20 {
		width = 20
	}
	var lines []string
	var line string
	for _, w := range words {
		switch {
		case line == "":
			line = w
		case len(line)+2+len(w) > width:
			lines = append(lines, line+",")
			line = w
		default:
			line += ", " + w
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
