package domain

import "time"

// AuthUser is the store-level user record that session tokens are minted for.
type AuthUser struct {
	ID               string
	Phone            string
	PhoneConfirmedAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Profile is the minimal profile row keyed by phone; its presence decides
// whether an identity exists for login and signup checks.
type Profile struct {
	ID        string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session is the result of a successful OTP verification.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    int64
	ExpiresIn    int64
	UserID       string
	Phone        string
}
