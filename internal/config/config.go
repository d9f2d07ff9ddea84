package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var leadingInteger = regexp.MustCompile(`^[+-]?\d+`)

const (
	// DefaultTokenTTLSeconds is used when SUPABASE_JWT_EXPIRES_IN_SECONDS is unset or invalid (30 days).
	DefaultTokenTTLSeconds int64 = 60 * 60 * 24 * 30
	// DefaultJWTIssuer matches the issuer the backend expects on its own session tokens.
	DefaultJWTIssuer = "supabase"
	// DefaultTwoFactorBaseURL is the 2Factor API root.
	DefaultTwoFactorBaseURL = "https://2factor.in/API/V1"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	OTP      OTPConfig
	Activity ActivityConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig holds session token signing parameters.
type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	TokenTTLSeconds int64
}

// OTPConfig holds the SMS OTP provider settings.
type OTPConfig struct {
	APIKey              string
	BaseURL             string
	Template            string
	HTTPTimeoutSeconds  int
	SendCooldownSeconds int
	DefaultCountryCode  string
}

// ActivityConfig controls forwarding of auth activity events.
type ActivityConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
// Missing secrets are not treated as load errors; requests that need them fail individually.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "care-circle-auth"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("SUPABASE_JWT_SECRET"),
			JWTIssuer:       getEnv("SUPABASE_JWT_ISSUER", DefaultJWTIssuer),
			TokenTTLSeconds: ParseTTLSeconds(os.Getenv("SUPABASE_JWT_EXPIRES_IN_SECONDS")),
		},
		OTP: OTPConfig{
			APIKey:              os.Getenv("TWOFACTOR_API_KEY"),
			BaseURL:             strings.TrimRight(getEnv("TWOFACTOR_BASE_URL", DefaultTwoFactorBaseURL), "/"),
			Template:            os.Getenv("TWOFACTOR_TEMPLATE"),
			HTTPTimeoutSeconds:  getEnvAsInt("OTP_HTTP_TIMEOUT_SECONDS", 0),
			SendCooldownSeconds: getEnvAsInt("OTP_SEND_COOLDOWN_SECONDS", 30),
			DefaultCountryCode:  getEnv("PHONE_DEFAULT_COUNTRY_CODE", "91"),
		},
		Activity: ActivityConfig{
			WebhookURL: os.Getenv("ACTIVITY_WEBHOOK_URL"),
		},
	}

	return cfg, nil
}

// ParseTTLSeconds parses a token lifetime in seconds from the leading integer
// of raw, so "3600s" and "3600.5" both read as 3600. Input without a leading
// integer, or a non-positive value, falls back to DefaultTokenTTLSeconds.
func ParseTTLSeconds(raw string) int64 {
	prefix := leadingInteger.FindString(strings.TrimSpace(raw))
	if prefix == "" {
		return DefaultTokenTTLSeconds
	}
	parsed, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || parsed <= 0 {
		return DefaultTokenTTLSeconds
	}
	return parsed
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// HTTPTimeout returns the outbound provider timeout; zero keeps the http.Client default.
func (o OTPConfig) HTTPTimeout() time.Duration {
	if o.HTTPTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(o.HTTPTimeoutSeconds) * time.Second
}

// SendCooldown returns the minimum interval between OTP sends to one phone.
func (o OTPConfig) SendCooldown() time.Duration {
	if o.SendCooldownSeconds <= 0 {
		return 0
	}
	return time.Duration(o.SendCooldownSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
