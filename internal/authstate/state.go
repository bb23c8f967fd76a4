// Package authstate tracks authentication state and a rolling security
// score through a pure reducer, with a machine wrapper that applies
// actions, notifies subscribers, and forces logout when the score drops
// below the critical threshold.
package authstate

import (
	"time"

	"github.com/securedbank/sentinel/internal/models"
)

const (
	// MaxSecurityScore is the score assigned to a freshly authenticated
	// session with no recorded incidents.
	MaxSecurityScore = 100

	// CriticalScoreThreshold is the score below which the session is no
	// longer trusted and a forced logout is scheduled.
	CriticalScoreThreshold = 40
)

// State is an immutable snapshot of the authentication state. Reduce
// returns a new value; callers never mutate a State they hold.
type State struct {
	User              *models.User
	Token             string
	IsAuthenticated   bool
	IsLoading         bool
	Error             string
	FailedAttempts    int
	SecurityScore     int
	SessionExpiresAt  time.Time
	DeviceFingerprint string
	LastLoginAt       time.Time
}

// Initial returns the unauthenticated starting state.
func Initial() State {
	return State{SecurityScore: MaxSecurityScore}
}

// Action is the closed set of state transitions. Each variant is a
// struct carrying the data its transition needs.
type Action interface {
	isAction()
}

// AuthStart marks the beginning of a login request.
type AuthStart struct{}

// AuthSuccess carries the result of a completed login.
type AuthSuccess struct {
	User        *models.User
	Token       string
	ExpiresAt   time.Time
	Fingerprint string
	Score       int
	LoginAt     time.Time
}

// AuthFailure records a rejected login.
type AuthFailure struct {
	Message string
}

// LoginAttemptFailed increments the failed-attempt counter and applies
// a medium-severity score penalty without changing authentication
// status.
type LoginAttemptFailed struct{}

// SecurityAlert applies a severity-weighted penalty to the score.
type SecurityAlert struct {
	Severity string
}

// RefreshToken replaces the access token after a refresh. A nil Score
// means the refresh response carried no score and the current value is
// kept, so a refreshed score of zero still applies.
type RefreshToken struct {
	Token     string
	ExpiresAt time.Time
	Score     *int
}

// SessionExpired ends the session because it timed out or was
// invalidated server-side.
type SessionExpired struct {
	Message string
}

// Logout ends the session at the user's request or as a forced effect.
type Logout struct {
	Message string
}

func (AuthStart) isAction()          {}
func (AuthSuccess) isAction()        {}
func (AuthFailure) isAction()        {}
func (LoginAttemptFailed) isAction() {}
func (SecurityAlert) isAction()      {}
func (RefreshToken) isAction()       {}
func (SessionExpired) isAction()     {}
func (Logout) isAction()             {}
