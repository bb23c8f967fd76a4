package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account and session state errors
	ErrAccountDisabled  = errors.New("account is disabled")
	ErrAccountSuspended = errors.New("account is suspended")
	ErrAccountLocked    = errors.New("account is temporarily locked")
	ErrTooManyAttempts  = errors.New("too many failed login attempts")
	ErrSessionInvalid   = errors.New("session is invalid or expired")
	ErrSessionHijacked  = errors.New("session fingerprint mismatch")
	ErrCSRFTokenInvalid = errors.New("csrf token missing or invalid")
	ErrTokenExpired     = errors.New("token has expired")
	ErrMFARequired      = errors.New("mfa verification required")
	ErrMFACodeInvalid   = errors.New("mfa code is invalid")
)
