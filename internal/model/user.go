package model

import "time"

// User is a credential record. SessionToken and IsLoggedIn always change
// together: both set on login, both cleared on logout or expiry.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RoleID       int64     `json:"role_id"`
	SessionToken *string   `json:"-"`
	IsLoggedIn   bool      `json:"is_logged_in"`
	OtpPending   bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Role struct {
	ID        int64     `json:"id"`
	Name      string    `json:"role_name"`
	CreatedAt time.Time `json:"created_at"`
}

// OtpChallenge is a single-use second factor bound to an email address.
// A consumed or overwritten challenge never validates again.
type OtpChallenge struct {
	Email     string    `json:"email"`
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionClaims is the decoded payload of a session token.
type SessionClaims struct {
	UserID   string `json:"sub"`
	Username string `json:"username"`
	RoleID   int64  `json:"role_id"`
	TokenID  string `json:"jti"`
}

// AuthUser is the sanitized profile returned to clients.
type AuthUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	RoleID     int64  `json:"role_id"`
	RoleName   string `json:"role_name,omitempty"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// LoginResult bundles the provisional session token with the profile.
// The token is live immediately; OTP verification is a separate step.
type LoginResult struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

// ActiveSession is the per-user session state the sweeper and the auth
// middleware consult.
type ActiveSession struct {
	UserID       string
	Username     string
	SessionToken string
	OtpPending   bool
}
