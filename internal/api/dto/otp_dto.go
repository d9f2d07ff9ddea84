package dto

// OTPSendRequest payload for POST /api/auth/otp/send.
type OTPSendRequest struct {
	Phone string `json:"phone"`
	Mode  string `json:"mode"`
}

// OTPSendResponse carries the provider session id the client echoes on verify.
type OTPSendResponse struct {
	SessionID string `json:"sessionId"`
}

// OTPVerifyRequest payload for POST /api/auth/otp/verify.
type OTPVerifyRequest struct {
	Phone     string `json:"phone"`
	OTP       string `json:"otp"`
	SessionID string `json:"sessionId"`
	Mode      string `json:"mode"`
}

// SessionUser identifies the token subject.
type SessionUser struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
}

// SessionResponse is the Supabase-shaped token response.
type SessionResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    int64       `json:"expires_at"`
	ExpiresIn    int64       `json:"expires_in"`
	TokenType    string      `json:"token_type"`
	User         SessionUser `json:"user"`
}

// CurrentSessionResponse describes the bearer presented to GET /api/auth/session.
type CurrentSessionResponse struct {
	User      SessionUser `json:"user"`
	ExpiresAt int64       `json:"expires_at"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}
