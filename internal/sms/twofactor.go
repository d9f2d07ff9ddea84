package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const statusSuccess = "Success"

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("sms: API key not configured")

// ProviderError is a non-success verdict from the provider. Detail is the
// provider's own message and is safe to show to the caller.
type ProviderError struct {
	StatusCode int
	Detail     string
}

// ProviderDetail returns the provider's message for pass-through to clients.
func (e *ProviderError) ProviderDetail() string {
	return e.Detail
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("sms: provider rejected request status=%d detail=%q", e.StatusCode, e.Detail)
}

type twoFactorResponse struct {
	Status  string `json:"Status"`
	Details string `json:"Details"`
}

// TwoFactorClient dispatches and verifies OTPs through the 2Factor SMS API.
// See https://2factor.in/API/V1.
type TwoFactorClient struct {
	APIKey     string
	BaseURL    string
	Template   string
	HTTPClient *http.Client
}

// NewTwoFactorClient returns a client for the given API key. An empty baseURL
// selects the public endpoint; a zero timeout keeps the http.Client default.
func NewTwoFactorClient(apiKey, baseURL, template string, timeout time.Duration) *TwoFactorClient {
	if baseURL == "" {
		baseURL = "https://2factor.in/API/V1"
	}
	return &TwoFactorClient{
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Template:   template,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an API key is set.
func (c *TwoFactorClient) Configured() bool {
	return c != nil && c.APIKey != ""
}

// SendOTP asks the provider to generate and text a code to phone and returns
// the provider session id needed for verification. Does not log the phone.
func (c *TwoFactorClient) SendOTP(ctx context.Context, phone string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	endpoint := c.endpoint("SMS", phone, "AUTOGEN")
	if c.Template != "" {
		endpoint += "/" + url.PathEscape(c.Template)
	}
	res, err := c.call(ctx, endpoint)
	if err != nil {
		return "", err
	}
	if res.Details == "" {
		return "", &ProviderError{StatusCode: http.StatusOK, Detail: "missing session id"}
	}
	return res.Details, nil
}

// VerifyOTP reports whether the provider accepts code for sessionID. A
// rejection is returned as false with a *ProviderError carrying the reason.
func (c *TwoFactorClient) VerifyOTP(ctx context.Context, sessionID, code string) (bool, error) {
	if !c.Configured() {
		return false, ErrNotConfigured
	}
	if _, err := c.call(ctx, c.endpoint("SMS", "VERIFY", sessionID, code)); err != nil {
		return false, err
	}
	return true, nil
}

func (c *TwoFactorClient) endpoint(segments ...string) string {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, c.BaseURL, url.PathEscape(c.APIKey))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return strings.Join(parts, "/")
}

func (c *TwoFactorClient) call(ctx context.Context, endpoint string) (*twoFactorResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sms: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sms: read response: %w", err)
	}

	var parsed twoFactorResponse
	decodeErr := json.Unmarshal(body, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || decodeErr != nil || parsed.Status != statusSuccess {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Detail: parsed.Details}
	}
	return &parsed, nil
}

