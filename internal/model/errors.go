package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyLoggedIn    = errors.New("user already logged in")

	// Role related errors
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleAlreadyExists = errors.New("role already exists")
	ErrRoleInUse         = errors.New("role is still assigned to users")

	// Token related errors
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrSessionInvalid = errors.New("session invalid")
	ErrOtpRequired    = errors.New("otp verification required")

	// OTP challenge errors
	ErrOtpNotFound = errors.New("no otp challenge found")
	ErrOtpMismatch = errors.New("otp code mismatch")
	ErrOtpExpired  = errors.New("otp expired")

	// Notification errors
	ErrNotificationFailed = errors.New("notification dispatch failed")
)
