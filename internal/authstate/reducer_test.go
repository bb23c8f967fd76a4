package authstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/securedbank/sentinel/internal/models"
)

func authenticatedState() State {
	return State{
		User:              &models.User{ID: "user-1", Email: "analyst@example.com"},
		Token:             "token-abc",
		IsAuthenticated:   true,
		SecurityScore:     MaxSecurityScore,
		SessionExpiresAt:  time.Now().Add(30 * time.Minute),
		DeviceFingerprint: "fp-1",
	}
}

func TestReduceAuthFlow(t *testing.T) {
	state := Initial()
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, MaxSecurityScore, state.SecurityScore)

	state = Reduce(state, AuthStart{})
	assert.True(t, state.IsLoading)
	assert.Empty(t, state.Error)

	loginAt := time.Now()
	expires := loginAt.Add(30 * time.Minute)
	state = Reduce(state, AuthSuccess{
		User:        &models.User{ID: "user-1"},
		Token:       "token-abc",
		ExpiresAt:   expires,
		Fingerprint: "fp-1",
		Score:       95,
		LoginAt:     loginAt,
	})

	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsLoading)
	assert.Equal(t, "token-abc", state.Token)
	assert.Equal(t, 95, state.SecurityScore)
	assert.Equal(t, "fp-1", state.DeviceFingerprint)
	assert.Equal(t, expires, state.SessionExpiresAt)
	assert.Equal(t, 0, state.FailedAttempts)
}

func TestReduceAuthFailure(t *testing.T) {
	state := Reduce(Initial(), AuthStart{})
	state = Reduce(state, AuthFailure{Message: "invalid credentials"})

	assert.False(t, state.IsLoading)
	assert.Equal(t, "invalid credentials", state.Error)
	assert.Equal(t, 0, state.FailedAttempts)
	assert.Equal(t, MaxSecurityScore, state.SecurityScore)
}

func TestReduceAuthFailureKeepsExistingSession(t *testing.T) {
	state := Reduce(authenticatedState(), AuthFailure{Message: "invalid credentials"})

	assert.True(t, state.IsAuthenticated)
	assert.NotNil(t, state.User)
	assert.Equal(t, "token-abc", state.Token)
	assert.Equal(t, "invalid credentials", state.Error)
	assert.Equal(t, 0, state.FailedAttempts)
}

func TestReduceLoginAttemptFailed(t *testing.T) {
	state := Reduce(authenticatedState(), LoginAttemptFailed{})
	assert.Equal(t, 1, state.FailedAttempts)
	assert.Equal(t, 90, state.SecurityScore)

	state = Reduce(state, LoginAttemptFailed{})
	assert.Equal(t, 2, state.FailedAttempts)
	assert.Equal(t, 80, state.SecurityScore)
}

func TestReduceLoginAttemptFailedScoreFloor(t *testing.T) {
	state := authenticatedState()
	for i := 0; i < 15; i++ {
		state = Reduce(state, LoginAttemptFailed{})
	}
	assert.Equal(t, 15, state.FailedAttempts)
	assert.Equal(t, 0, state.SecurityScore)
}

func TestReduceSecurityAlertWeights(t *testing.T) {
	tests := []struct {
		severity string
		want     int
	}{
		{models.SeverityLow, 95},
		{models.SeverityMedium, 90},
		{models.SeverityHigh, 80},
		{models.SeverityCritical, 70},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			state := Reduce(authenticatedState(), SecurityAlert{Severity: tt.severity})
			assert.Equal(t, tt.want, state.SecurityScore)
		})
	}
}

func TestReduceScoreClampedToZero(t *testing.T) {
	state := authenticatedState()
	for i := 0; i < 10; i++ {
		state = Reduce(state, SecurityAlert{Severity: models.SeverityCritical})
	}
	assert.Equal(t, 0, state.SecurityScore)
}

func TestReduceScoreClampedToMax(t *testing.T) {
	state := Reduce(Initial(), AuthSuccess{Score: 500})
	assert.Equal(t, MaxSecurityScore, state.SecurityScore)
}

func TestReduceUnknownSeverityHasNoEffect(t *testing.T) {
	state := Reduce(authenticatedState(), SecurityAlert{Severity: "bogus"})
	assert.Equal(t, MaxSecurityScore, state.SecurityScore)
}

func TestReduceRefreshToken(t *testing.T) {
	state := authenticatedState()
	expires := time.Now().Add(30 * time.Minute)

	state = Reduce(state, RefreshToken{Token: "token-new", ExpiresAt: expires, Score: scorePtr(85)})

	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, "token-new", state.Token)
	assert.Equal(t, expires, state.SessionExpiresAt)
	assert.Equal(t, 85, state.SecurityScore)
}

func TestReduceRefreshTokenKeepsScoreWhenAbsent(t *testing.T) {
	state := authenticatedState()
	state.SecurityScore = 60

	state = Reduce(state, RefreshToken{Token: "token-new", ExpiresAt: time.Now()})

	assert.Equal(t, 60, state.SecurityScore)
}

func TestReduceRefreshTokenAppliesZeroScore(t *testing.T) {
	state := authenticatedState()
	state.SecurityScore = 60

	state = Reduce(state, RefreshToken{Token: "token-new", ExpiresAt: time.Now(), Score: scorePtr(0)})

	assert.Equal(t, 0, state.SecurityScore)
}

func scorePtr(score int) *int {
	return &score
}

func TestReduceSessionExpiredPreservesFailedAttempts(t *testing.T) {
	state := authenticatedState()
	state.FailedAttempts = 3

	state = Reduce(state, SessionExpired{Message: "signed out after inactivity"})

	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Equal(t, "signed out after inactivity", state.Error)
	assert.Equal(t, 3, state.FailedAttempts)
	assert.Equal(t, MaxSecurityScore, state.SecurityScore)
}

func TestReduceLogoutResetsEverything(t *testing.T) {
	state := authenticatedState()
	state.FailedAttempts = 3
	state.SecurityScore = 35

	state = Reduce(state, Logout{Message: "signed out"})

	assert.False(t, state.IsAuthenticated)
	assert.Nil(t, state.User)
	assert.Empty(t, state.Token)
	assert.Equal(t, 0, state.FailedAttempts)
	assert.Equal(t, MaxSecurityScore, state.SecurityScore)
	assert.Equal(t, "signed out", state.Error)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := authenticatedState()
	snapshot := before

	Reduce(before, SecurityAlert{Severity: models.SeverityCritical})

	assert.Equal(t, snapshot, before)
}

func TestBelowCriticalThreshold(t *testing.T) {
	state := authenticatedState()
	state.SecurityScore = 40
	assert.False(t, BelowCriticalThreshold(state))

	state.SecurityScore = 39
	assert.True(t, BelowCriticalThreshold(state))

	state.IsAuthenticated = false
	assert.False(t, BelowCriticalThreshold(state))
}
