package domain

// AuthMode declares whether the caller is signing in or registering.
type AuthMode string

const (
	AuthModeLogin  AuthMode = "login"
	AuthModeSignup AuthMode = "signup"
)

// Valid reports whether m is a supported mode.
func (m AuthMode) Valid() bool {
	return m == AuthModeLogin || m == AuthModeSignup
}

// FlowState tracks a request through the OTP to session protocol.
type FlowState string

const (
	FlowAwaitingOTPSend  FlowState = "AWAITING_OTP_SEND"
	FlowOTPSent          FlowState = "OTP_SENT"
	FlowOTPVerified      FlowState = "OTP_VERIFIED"
	FlowIdentityResolved FlowState = "IDENTITY_RESOLVED"
	FlowTokenIssued      FlowState = "TOKEN_ISSUED"
	FlowRejected         FlowState = "REJECTED"
)

// Claim values the backend expects on every session token.
const (
	AudienceAuthenticated = "authenticated"
	RoleAuthenticated     = "authenticated"
	ProviderPhone         = "phone"
)

// RefreshTokenSentinel is returned in place of a refresh token; no refresh flow exists.
const RefreshTokenSentinel = "no-refresh"

// TokenTypeBearer is the token_type echoed to clients.
const TokenTypeBearer = "bearer"
