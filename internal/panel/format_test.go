package panel

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0d 00h 00m 00s"},
		{59, "0d 00h 00m 59s"},
		{3725, "0d 01h 02m 05s"},
		{90061, "1d 01h 01m 01s"},
		{1209599, "13d 23h 59m 59s"},
		{-5, "0d 00h 00m 00s"},
	}

	for _, tt := range tests {
		if got := FormatUptime(tt.seconds); got != tt.want {
			t.Errorf("FormatUptime(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseHSV(t *testing.T) {
	c, err := ParseHSV("180,50,75")
	require.NoError(t, err)
	assert.Equal(t, HSV{H: 0.5, S: 0.5, V: 0.75}, c)
	assert.Equal(t, "180,50,75", c.Pack())

	c, err = ParseHSV(" 360, 100 ,0")
	require.NoError(t, err)
	assert.Equal(t, "360,100,0", c.Pack())

	for _, bad := range []string{"", "1,2", "1,2,3,4", "a,b,c"} {
		_, err := ParseHSV(bad)
		assert.Error(t, err, bad)
	}
}

func TestHSVPackTruncates(t *testing.T) {
	c := HSV{H: 0.9999, S: 0.129, V: 0.999}
	assert.Equal(t, "359,12,99", c.Pack())
}

func TestHSVRoundTrip(t *testing.T) {
	tests := []string{
		"0,29,57",
		"180,50,75",
		"7,14,28",
		"359,58,99",
		"123,1,3",
		"360,100,100",
		"0,0,0",
	}

	for _, packed := range tests {
		t.Run(packed, func(t *testing.T) {
			c, err := ParseHSV(packed)
			require.NoError(t, err)
			if got := c.Pack(); got != packed {
				t.Errorf("ParseHSV(%q).Pack() = %q, want %q", packed, got, packed)
			}
		})
	}

	for s := 0; s <= 100; s++ {
		c := HSV{S: float64(s) / 100, V: float64(s) / 100}
		want := fmt.Sprintf("0,%d,%d", s, s)
		if got := c.Pack(); got != want {
			t.Errorf("Pack() = %q, want %q", got, want)
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"text", "text"},
		{json.Number("42"), "42"},
		{json.Number("1.5"), "1.5"},
		{true, "true"},
		{2.0, "2"},
		{7, "7"},
		{[]any{"a"}, `["a"]`},
	}
	for _, tt := range tests {
		if got := stringify(tt.in); got != tt.want {
			t.Errorf("stringify(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"0", true},
		{json.Number("0"), false},
		{json.Number("1"), true},
		{json.Number("0.0"), false},
		{0.0, false},
		{1, true},
		{map[string]any{}, true},
	}
	for _, tt := range tests {
		if got := truthy(tt.in); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in     any
		want   int
		wantOK bool
	}{
		{json.Number("5"), 5, true},
		{json.Number("5.9"), 5, true},
		{"12", 12, true},
		{" 3 ", 3, true},
		{"x", 0, false},
		{true, 1, true},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := toInt(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("toInt(%#v) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRandomString(t *testing.T) {
	tests := []struct {
		mask    string
		allowed string
	}{
		{"a", "abcdefghijklmnopqrstuvwxyz"},
		{"A", "ABCDEFGHIJKLMNOPQRSTUVWXYZ"},
		{"#", "0123456789"},
		{"@#", "ABCDEF0123456789"},
		{"!", string(symbolCharset)},
	}

	for _, tt := range tests {
		s := RandomString(64, tt.mask)
		assert.Len(t, []rune(s), 64, tt.mask)
		for _, r := range s {
			if !strings.ContainsRune(tt.allowed, r) {
				t.Errorf("RandomString(64, %q) produced %q", tt.mask, r)
			}
		}
	}

	assert.Empty(t, RandomString(16, ""))
	assert.Empty(t, RandomString(16, "xyz"))
	assert.Empty(t, RandomString(0, "a"))
}

func TestGenerateAPIKey(t *testing.T) {
	key := GenerateAPIKey()
	assert.Regexp(t, `^[0-9A-F]{16}$`, key)
}
