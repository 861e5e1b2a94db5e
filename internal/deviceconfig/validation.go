package deviceconfig

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// espImageMagic is the first byte of an ESP8266 application image
	espImageMagic = 0xE9

	// MaxImageSize is the largest image any supported flash layout accepts
	MaxImageSize = 4 << 20
)

var gzipMagic = []byte{0x1f, 0x8b}

// ValidateFirmwareImage checks an image before it is uploaded. header is
// the beginning of the file, at least two bytes when available. freeSpace
// is the sketch space the device announced, 0 when unknown.
// Returns a slice of validation errors (empty if valid); warnings are
// prefixed with "warning:".
func ValidateFirmwareImage(name string, size int64, header []byte, freeSpace int64) []error {
	var errs []error

	if size <= 0 || len(header) == 0 {
		return []error{NewValidationError("First you have to select a file from your computer.")}
	}

	compressed := len(header) >= 2 && header[0] == gzipMagic[0] && header[1] == gzipMagic[1]
	if !compressed && header[0] != espImageMagic {
		errs = append(errs, NewValidationError(
			fmt.Sprintf("%s is not an ESP8266 firmware image (first byte 0x%02X, want 0x%02X)", filepath.Base(name), header[0], espImageMagic),
		))
	}

	if size > MaxImageSize {
		errs = append(errs, NewValidationError(fmt.Sprintf("image too large: %d bytes (max %d)", size, MaxImageSize)))
	} else if freeSpace > 0 && size > freeSpace {
		errs = append(errs, NewValidationError(
			fmt.Sprintf("image does not fit: %d bytes, device has %d bytes free", size, freeSpace),
		))
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".bin" && ext != ".gz" {
		errs = append(errs, NewValidationError(
			fmt.Sprintf("warning: unexpected file extension %q (images are usually .bin or .bin.gz)", ext),
		))
	}

	return errs
}

// FormatValidationErrors formats a slice of validation errors into a user-friendly message.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Image validation failed with %d error(s):\n", len(errs)))

	for i, err := range errs {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}

	return sb.String()
}

// IsWarning checks if a validation error is a warning (non-fatal).
// Warnings have messages starting with "warning:".
func IsWarning(err error) bool {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return strings.HasPrefix(devErr.Message, "warning:")
	}
	return strings.Contains(err.Error(), "warning:")
}

// SeparateWarningsAndErrors separates validation errors into warnings and errors.
func SeparateWarningsAndErrors(errs []error) (warnings []error, criticalErrors []error) {
	for _, err := range errs {
		if IsWarning(err) {
			warnings = append(warnings, err)
		} else {
			criticalErrors = append(criticalErrors, err)
		}
	}
	return warnings, criticalErrors
}
