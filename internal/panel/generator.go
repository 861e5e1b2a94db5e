package panel

import (
	"strings"

	"github.com/samber/lo"
)

var (
	hexCharset    = []rune("ABCDEF")
	symbolCharset = []rune("~`!@#$%^&*()_+-={}[]:\";'<>?,./|\\")
)

// RandomString returns length characters drawn from the classes named in
// mask: 'a' lowercase letters, 'A' uppercase letters, '#' digits,
// '@' uppercase hex letters and '!' symbols. An empty result is returned
// when the mask selects nothing or length is not positive.
func RandomString(length int, mask string) string {
	var charset []rune
	if strings.ContainsRune(mask, 'a') {
		charset = append(charset, lo.LowerCaseLettersCharset...)
	}
	if strings.ContainsRune(mask, 'A') {
		charset = append(charset, lo.UpperCaseLettersCharset...)
	}
	if strings.ContainsRune(mask, '#') {
		charset = append(charset, lo.NumbersCharset...)
	}
	if strings.ContainsRune(mask, '@') {
		charset = append(charset, hexCharset...)
	}
	if strings.ContainsRune(mask, '!') {
		charset = append(charset, symbolCharset...)
	}
	if length <= 0 || len(charset) == 0 {
		return ""
	}
	return lo.RandomString(length, charset)
}

// GenerateAPIKey returns a 16 character uppercase hexadecimal key.
func GenerateAPIKey() string {
	return RandomString(16, "@#")
}
