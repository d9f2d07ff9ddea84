package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTTLSeconds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int64
	}{
		{name: "empty uses default", raw: "", want: DefaultTokenTTLSeconds},
		{name: "non numeric uses default", raw: "thirty days", want: DefaultTokenTTLSeconds},
		{name: "zero uses default", raw: "0", want: DefaultTokenTTLSeconds},
		{name: "negative uses default", raw: "-60", want: DefaultTokenTTLSeconds},
		{name: "fractional keeps integer part", raw: "3600.5", want: 3600},
		{name: "unit suffix keeps numeric prefix", raw: "3600s", want: 3600},
		{name: "exponent keeps leading digits", raw: "1e3", want: 1},
		{name: "explicit plus sign", raw: "+90", want: 90},
		{name: "suffix on non positive uses default", raw: "0s", want: DefaultTokenTTLSeconds},
		{name: "overflow uses default", raw: "99999999999999999999", want: DefaultTokenTTLSeconds},
		{name: "positive value", raw: "3600", want: 3600},
		{name: "surrounding spaces", raw: " 120 ", want: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTTLSeconds(tt.raw))
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SUPABASE_JWT_SECRET", "SUPABASE_JWT_ISSUER", "SUPABASE_JWT_EXPIRES_IN_SECONDS",
		"TWOFACTOR_API_KEY", "TWOFACTOR_BASE_URL", "TWOFACTOR_TEMPLATE",
		"OTP_SEND_COOLDOWN_SECONDS", "PHONE_DEFAULT_COUNTRY_CODE", "REDIS_DB",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultJWTIssuer, cfg.Auth.JWTIssuer)
	assert.Equal(t, DefaultTokenTTLSeconds, cfg.Auth.TokenTTLSeconds)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, DefaultTwoFactorBaseURL, cfg.OTP.BaseURL)
	assert.Equal(t, "91", cfg.OTP.DefaultCountryCode)
	assert.Equal(t, 30*time.Second, cfg.OTP.SendCooldown())
	assert.Zero(t, cfg.OTP.HTTPTimeout())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "top-secret")
	t.Setenv("SUPABASE_JWT_ISSUER", "care-circle")
	t.Setenv("SUPABASE_JWT_EXPIRES_IN_SECONDS", "7200")
	t.Setenv("TWOFACTOR_BASE_URL", "http://sms.local/API/V1/")
	t.Setenv("OTP_SEND_COOLDOWN_SECONDS", "0")
	t.Setenv("OTP_HTTP_TIMEOUT_SECONDS", "5")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "top-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "care-circle", cfg.Auth.JWTIssuer)
	assert.Equal(t, int64(7200), cfg.Auth.TokenTTLSeconds)
	assert.Equal(t, "http://sms.local/API/V1", cfg.OTP.BaseURL)
	assert.Zero(t, cfg.OTP.SendCooldown())
	assert.Equal(t, 5*time.Second, cfg.OTP.HTTPTimeout())
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")

	_, err := Load()
	assert.Error(t, err)
}
