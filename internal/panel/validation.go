package panel

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/muurk/espcfg/internal/protocol"
)

const (
	// MinPasswordLength is the shortest admin password the device accepts.
	MinPasswordLength = 5

	passwordSymbols = "_~!@#$%^&*()<>,.?;:{}[]\\|"

	invalidPasswordText = "The password you have entered is not valid, it must have at least 5 characters, 1 lowercase and 1 uppercase or number!"
	maxNetworksText     = "Max number of networks reached"
)

// ValidationError is a form check that blocked an outbound command. Text
// is what the operator is shown. MessageID is set when the text comes from
// the device message catalog.
type ValidationError struct {
	Field     string
	MessageID int
	Text      string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Text
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Text)
}

// CheckPassword reports whether s satisfies the admin password policy:
// at least five characters from letters, digits and a fixed symbol set,
// with at least one lowercase letter and at least one uppercase letter or
// digit.
func CheckPassword(s string) bool {
	if len(s) < MinPasswordLength {
		return false
	}
	var lower, upperOrDigit bool
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			return false
		case r >= 'a' && r <= 'z':
			lower = true
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			upperOrDigit = true
		case strings.ContainsRune(passwordSymbols, r):
		default:
			return false
		}
	}
	return lower && upperOrDigit
}

// ValidatePasswords checks the admin password pair. An empty first
// password skips the policy check, but the pair must still match.
func ValidatePasswords(pass1, pass2 string) error {
	if len(pass1) > 0 && !CheckPassword(pass1) {
		return &ValidationError{Field: "adminPass1", Text: invalidPasswordText}
	}
	if pass1 != pass2 {
		text, _ := protocol.MessageText(protocol.MsgPasswordMismatch)
		return &ValidationError{Field: "adminPass2", MessageID: protocol.MsgPasswordMismatch, Text: text}
	}
	return nil
}

// ValidateNetworkCount checks the configured network rows against the
// announced limit. A limit of zero means none was announced.
func ValidateNetworkCount(count, limit int) error {
	if limit > 0 && count > limit {
		return &ValidationError{Field: "networks", Text: maxNetworksText}
	}
	return nil
}

// FormatValidationErrors renders a list of validation errors for the
// console.
func FormatValidationErrors(errs []error) string {
	if len(errs) == 0 {
		return "No validation errors"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Form validation failed with %d error(s):\n", len(errs)))
	for i, err := range errs {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}
