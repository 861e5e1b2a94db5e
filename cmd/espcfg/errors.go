package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/muurk/espcfg/internal/deviceconfig"
	"github.com/muurk/espcfg/internal/ui"
)

// shownError marks an error whose result box a command already printed.
type shownError struct{ error }

func (e shownError) Unwrap() error { return e.error }

// shown returns err marked as already rendered.
func shown(err error) error {
	if err == nil {
		return nil
	}
	return shownError{err}
}

// errorTitle names the kind of device failure behind err, or "" when err
// did not come from talking to a device.
func errorTitle(err error) string {
	switch {
	case deviceconfig.IsAuthError(err):
		return "Authentication failed"
	case deviceconfig.IsNetworkError(err):
		return "Device unreachable"
	case deviceconfig.IsHTTPError(err):
		return "Device returned an error"
	case deviceconfig.IsParseError(err):
		return "Invalid data"
	case deviceconfig.IsValidationError(err):
		return "Invalid input"
	case deviceconfig.IsUploadError(err):
		return "Firmware rejected"
	default:
		return ""
	}
}

// reportError prints the final error of a command. Device failures get a
// result box with troubleshooting tips unless the command printed one.
func reportError(w io.Writer, err error) {
	var done shownError
	title := errorTitle(err)
	if title == "" || errors.As(err, &done) {
		_, _ = fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	ui.NewPrinter(w).PrintError(title, err, nil)
}
