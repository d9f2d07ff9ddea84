package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{name: "already e164", raw: "+919876543210", want: "+919876543210", valid: true},
		{name: "international with spaces", raw: " +91 98765-43210 ", want: "+919876543210", valid: true},
		{name: "national ten digits", raw: "9876543210", want: "+919876543210", valid: true},
		{name: "national with separators", raw: "(987) 654-3210", want: "+919876543210", valid: true},
		{name: "us number", raw: "+1 555 123 4567", want: "+15551234567", valid: true},
		{name: "too short national", raw: "98765", want: "98765", valid: false},
		{name: "eleven digits without plus", raw: "09876543210", want: "09876543210", valid: false},
		{name: "too long international", raw: "+1234567890123456", want: "+1234567890123456", valid: false},
		{name: "plus only", raw: "+", want: "+", valid: false},
		{name: "empty", raw: "", want: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw, "91")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, Valid(got))
		})
	}
}

func TestNormalize_CountryCodeWithPlus(t *testing.T) {
	assert.Equal(t, "+449876543210", Normalize("9876543210", "+44"))
}

func TestValidOTP(t *testing.T) {
	for code, want := range map[string]bool{
		"1234":      true,
		"123456":    true,
		"12345678":  true,
		"123":       false,
		"123456789": false,
		"12a456":    false,
		"":          false,
	} {
		assert.Equal(t, want, ValidOTP(code), code)
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "*********3210", Mask("+919876543210"))
	assert.Equal(t, "***", Mask("123"))
}
