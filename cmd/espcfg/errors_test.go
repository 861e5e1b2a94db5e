package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/muurk/espcfg/internal/deviceconfig"
)

func TestErrorTitle(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"auth", deviceconfig.NewAuthError("bad password"), "Authentication failed"},
		{"timeout", deviceconfig.ClassifyNetworkError(context.DeadlineExceeded, "10.0.0.2"), "Device unreachable"},
		{"http", deviceconfig.NewHTTPError(500, "boom"), "Device returned an error"},
		{"parse", deviceconfig.NewParseError("not a configuration backup", errors.New("eof")), "Invalid data"},
		{"validation", deviceconfig.NewValidationError("empty image"), "Invalid input"},
		{"upload", deviceconfig.NewUploadError("Not enough space"), "Firmware rejected"},
		{"wrapped", fmt.Errorf("backup: %w", deviceconfig.NewAuthError("no")), "Authentication failed"},
		{"plain", errors.New("cancelled"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTitle(tt.err); got != tt.want {
				t.Errorf("errorTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReportError(t *testing.T) {
	t.Run("device error gets a result box", func(t *testing.T) {
		var buf bytes.Buffer
		reportError(&buf, deviceconfig.NewAuthError("credentials rejected"))
		assert.Contains(t, buf.String(), "Authentication failed")
		assert.Contains(t, buf.String(), "ESPCFG_PASSWORD")
	})

	t.Run("already shown", func(t *testing.T) {
		var buf bytes.Buffer
		err := deviceconfig.NewAuthError("credentials rejected")
		reportError(&buf, shown(err))
		assert.Equal(t, "Error: "+err.Error()+"\n", buf.String())
	})

	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		reportError(&buf, errors.New("no device found"))
		assert.Equal(t, "Error: no device found\n", buf.String())
	})

	assert.NoError(t, shown(nil))
}
