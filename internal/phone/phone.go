// Package phone normalises user-entered phone numbers to E.164.
package phone

import (
	"regexp"
	"strings"
)

var (
	e164Pattern  = regexp.MustCompile(`^\+\d{10,15}$`)
	otpPattern   = regexp.MustCompile(`^\d{4,8}$`)
	nonDigitsRep = regexp.MustCompile(`\D`)
)

// Normalize converts raw input to "+<digits>". A leading "+" keeps the number
// international; a bare 10 digit national number gets defaultCountryCode.
// Anything else is returned trimmed so that Valid rejects it.
func Normalize(raw, defaultCountryCode string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "+") {
		return "+" + nonDigitsRep.ReplaceAllString(trimmed, "")
	}
	digits := nonDigitsRep.ReplaceAllString(trimmed, "")
	if len(digits) == 10 {
		return "+" + strings.TrimPrefix(defaultCountryCode, "+") + digits
	}
	return trimmed
}

// Valid reports whether p is "+" followed by 10 to 15 digits.
func Valid(p string) bool {
	return e164Pattern.MatchString(p)
}

// ValidOTP reports whether code is 4 to 8 digits.
func ValidOTP(code string) bool {
	return otpPattern.MatchString(code)
}

// Mask hides all but the last four digits, for logs and events.
func Mask(p string) string {
	if len(p) <= 4 {
		return strings.Repeat("*", len(p))
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}
