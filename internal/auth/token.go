package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/care-circle-auth/internal/config"
	"github.com/spec-kit/care-circle-auth/internal/domain"
)

var (
	// ErrInvalidToken is returned when a token is malformed, unsigned by us or expired.
	ErrInvalidToken = errors.New("invalid token")

	base64URLReplacer = strings.NewReplacer("=", "", "+", "-", "/", "_")
)

// tokenHeader is serialised in this field order.
type tokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// AppMetadata mirrors the backend's app_metadata claim.
type AppMetadata struct {
	Provider  string   `json:"provider"`
	Providers []string `json:"providers"`
}

// UserMetadata is always emitted as an empty object.
type UserMetadata struct{}

// Claims is the session token payload. Field order is part of the signing
// contract: changing it changes every signature.
type Claims struct {
	Audience     string       `json:"aud"`
	Role         string       `json:"role"`
	Subject      string       `json:"sub"`
	Phone        string       `json:"phone"`
	Issuer       string       `json:"iss"`
	IssuedAt     int64        `json:"iat"`
	ExpiresAt    int64        `json:"exp"`
	AppMetadata  AppMetadata  `json:"app_metadata"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// GetExpirationTime implements jwt.Claims.
func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

// GetIssuedAt implements jwt.Claims.
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

// GetNotBefore implements jwt.Claims.
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims.
func (c *Claims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

// GetSubject implements jwt.Claims.
func (c *Claims) GetSubject() (string, error) {
	return c.Subject, nil
}

// GetAudience implements jwt.Claims.
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Audience}, nil
}

// TokenRequest carries the inputs for minting a session token. Callers must
// reject missing secrets, issuers and unresolved users before issuing.
type TokenRequest struct {
	UserID     string
	Phone      string
	Issuer     string
	Secret     string
	TTLSeconds int64
}

// IssueToken mints an HS256 session token for an already resolved identity and
// returns it with its expiry in seconds since epoch. A non-positive TTL falls
// back to config.DefaultTokenTTLSeconds.
func IssueToken(req TokenRequest) (string, int64, error) {
	return issueTokenAt(req, time.Now())
}

func issueTokenAt(req TokenRequest, now time.Time) (string, int64, error) {
	ttl := req.TTLSeconds
	if ttl <= 0 {
		ttl = config.DefaultTokenTTLSeconds
	}
	iat := now.Unix()
	exp := iat + ttl

	claims := Claims{
		Audience:     domain.AudienceAuthenticated,
		Role:         domain.RoleAuthenticated,
		Subject:      req.UserID,
		Phone:        req.Phone,
		Issuer:       req.Issuer,
		IssuedAt:     iat,
		ExpiresAt:    exp,
		AppMetadata:  AppMetadata{Provider: domain.ProviderPhone, Providers: []string{domain.ProviderPhone}},
		UserMetadata: UserMetadata{},
	}

	headerJSON, err := marshalJSON(tokenHeader{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", 0, err
	}
	payloadJSON, err := marshalJSON(claims)
	if err != nil {
		return "", 0, err
	}

	signingInput := encodeSegment(headerJSON) + "." + encodeSegment(payloadJSON)
	mac := hmac.New(sha256.New, []byte(req.Secret))
	mac.Write([]byte(signingInput))

	return signingInput + "." + encodeSegment(mac.Sum(nil)), exp, nil
}

// marshalJSON encodes like JSON.stringify: no HTML escaping, no trailing newline.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// encodeSegment is standard base64 with padding stripped and the URL-safe
// alphabet substituted after encoding.
func encodeSegment(b []byte) string {
	return base64URLReplacer.Replace(base64.StdEncoding.EncodeToString(b))
}

// TokenManager handles issuing and validating session tokens with the configured secret.
type TokenManager struct {
	secret     []byte
	issuer     string
	ttlSeconds int64
	nowF       func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	ttl := cfg.TokenTTLSeconds
	if ttl <= 0 {
		ttl = config.DefaultTokenTTLSeconds
	}
	issuer := cfg.JWTIssuer
	if issuer == "" {
		issuer = config.DefaultJWTIssuer
	}
	return &TokenManager{secret: []byte(cfg.JWTSecret), issuer: issuer, ttlSeconds: ttl, nowF: time.Now}
}

// Configured reports whether a signing secret is available.
func (tm *TokenManager) Configured() bool {
	return tm != nil && len(tm.secret) > 0
}

// Issuer returns the iss claim stamped on issued tokens.
func (tm *TokenManager) Issuer() string {
	return tm.issuer
}

// TTLSeconds returns the lifetime of issued tokens.
func (tm *TokenManager) TTLSeconds() int64 {
	return tm.ttlSeconds
}

// GenerateToken mints a token for the resolved user.
func (tm *TokenManager) GenerateToken(userID, phone string) (string, int64, error) {
	return issueTokenAt(TokenRequest{
		UserID:     userID,
		Phone:      phone,
		Issuer:     tm.issuer,
		Secret:     string(tm.secret),
		TTLSeconds: tm.ttlSeconds,
	}, tm.nowF())
}

// ParseToken verifies the signature, expiry, audience, role and issuer of a
// bearer token and returns its claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(domain.AudienceAuthenticated),
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.nowF),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Role != domain.RoleAuthenticated || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
