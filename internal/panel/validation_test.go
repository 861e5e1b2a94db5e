package panel

import (
	"errors"
	"strings"
	"testing"

	"github.com/muurk/espcfg/internal/protocol"
)

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"abcD1", true},
		{"abcd1", true},
		{"abcdE", true},
		{"fibonacci", false},
		{"ABCD1", false},
		{"ab1", false},
		{"abc1", false},
		{"p@ss_w0rd!", true},
		{"with space1", false},
		{"tab\tA1bc", false},
		{"emojiA1b😀", false},
		{"a{b}[c]|1", true},
		{"quote'A1b", false},
	}

	for _, tt := range tests {
		if got := CheckPassword(tt.password); got != tt.want {
			t.Errorf("CheckPassword(%q) = %v, want %v", tt.password, got, tt.want)
		}
	}
}

func TestValidatePasswords(t *testing.T) {
	tests := []struct {
		name   string
		p1, p2 string
		wantID int
		wantOK bool
		substr string
	}{
		{name: "both empty", wantOK: true},
		{name: "valid pair", p1: "secret1", p2: "secret1", wantOK: true},
		{name: "weak", p1: "abc", p2: "abc", substr: "at least 5 characters"},
		{name: "mismatch", p1: "secret1", p2: "secret2", wantID: protocol.MsgPasswordMismatch, substr: "Passwords do not match!"},
		{name: "empty first but second set", p2: "secret1", wantID: protocol.MsgPasswordMismatch, substr: "Passwords do not match!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswords(tt.p1, tt.p2)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("ValidatePasswords() unexpected error: %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidatePasswords() = %v, want *ValidationError", err)
			}
			if verr.MessageID != tt.wantID {
				t.Errorf("MessageID = %d, want %d", verr.MessageID, tt.wantID)
			}
			if !strings.Contains(verr.Text, tt.substr) {
				t.Errorf("Text = %q, want it to contain %q", verr.Text, tt.substr)
			}
		})
	}
}

func TestValidateNetworkCount(t *testing.T) {
	tests := []struct {
		count, limit int
		wantErr      bool
	}{
		{0, 0, false},
		{7, 0, false},
		{5, 5, false},
		{6, 5, true},
	}
	for _, tt := range tests {
		err := ValidateNetworkCount(tt.count, tt.limit)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateNetworkCount(%d, %d) error = %v, wantErr %v", tt.count, tt.limit, err, tt.wantErr)
		}
	}
}

func TestFormatValidationErrors(t *testing.T) {
	if got := FormatValidationErrors(nil); got != "No validation errors" {
		t.Errorf("FormatValidationErrors(nil) = %q", got)
	}
	got := FormatValidationErrors([]error{
		&ValidationError{Field: "adminPass1", Text: "too short"},
		&ValidationError{Text: "too many"},
	})
	for _, want := range []string{"2 error(s)", "1. adminPass1: too short", "2. too many"} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatValidationErrors() missing %q in %q", want, got)
		}
	}
}
