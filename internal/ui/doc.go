// Package ui renders console output for espcfg's scripted commands.
//
// Components render once and exit; the interactive panel lives in package
// tui. The package provides:
//
//   - Header: command banner showing the operation and its parameters
//   - Progress: step list with a bar for uploads
//   - Result: success, warning and failure boxes; failures carry the
//     troubleshooting hints of device errors
//   - Prompter: the operator on a console, answering the panel's yes/no
//     questions and printing its notifications
//   - FormatView: a panel view as sections of labelled fields, or as
//     key=value lines for scripts
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Backup", "espcfg backup", map[string]string{"Device": host})
//	raw, err := client.DownloadBackup(ctx)
//	if err != nil {
//	    p.PrintError("Backup failed", err, nil)
//	    return err
//	}
//
// Logging is controlled by ESPCFG_LOG_LEVEL and is silent when unset, so
// only the styled output reaches the terminal.
package ui
