package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSecurityService(
	users *MockUserRepository,
	attempts *MockLoginAttemptRepository,
	events *MockSecurityEventRepository,
	sec *security.Services,
) *SecurityService {
	return NewSecurityService(users, attempts, events, sec, slog.Default())
}

func TestSecurityService_Status_FullScore(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newTestSecurityService(mockUserRepo, &MockLoginAttemptRepository{}, &MockSecurityEventRepository{}, newTestSecurity())

	status, err := svc.Status(context.Background(), "user123")
	require.NoError(t, err)

	assert.Equal(t, 100, status.SecurityScore)
	assert.Equal(t, 0, status.ActiveSessions)
	assert.False(t, status.MFAEnabled)
	assert.False(t, status.AccountLocked)
	assert.Nil(t, status.LastLogin)
}

func TestSecurityService_Status_ScorePenaltyAndFloor(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	tests := []struct {
		name    string
		penalty int
		want    int
	}{
		{"single medium event", 10, 90},
		{"mixed events", 45, 55},
		{"penalty beyond floor", 150, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &MockSecurityEventRepository{
				SumSeverityWeightsFunc: func(ctx context.Context, userID string, since time.Time) (int, error) {
					return tt.penalty, nil
				},
			}
			svc := newTestSecurityService(mockUserRepo, &MockLoginAttemptRepository{}, events, newTestSecurity())

			status, err := svc.Status(context.Background(), "user123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.SecurityScore)
		})
	}
}

func TestSecurityService_Status_CountsActiveSessions(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	sec := newTestSecurity()
	_, err := sec.Sessions.Create("user123", "fp-laptop", nil)
	require.NoError(t, err)
	_, err = sec.Sessions.Create("user123", "fp-phone", nil)
	require.NoError(t, err)
	_, err = sec.Sessions.Create("other-user", "fp-other", nil)
	require.NoError(t, err)

	svc := newTestSecurityService(mockUserRepo, &MockLoginAttemptRepository{}, &MockSecurityEventRepository{}, sec)

	status, err := svc.Status(context.Background(), "user123")
	require.NoError(t, err)
	assert.Equal(t, 2, status.ActiveSessions)
}

func TestSecurityService_Status_LockedAccount(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	lockedUntil := time.Now().Add(10 * time.Minute)
	user.LockedUntil = &lockedUntil

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newTestSecurityService(mockUserRepo, &MockLoginAttemptRepository{}, &MockSecurityEventRepository{}, newTestSecurity())

	status, err := svc.Status(context.Background(), "user123")
	require.NoError(t, err)
	assert.True(t, status.AccountLocked)
}

func TestSecurityService_DeviceLogins(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	lastSeen := time.Now().Add(-2 * time.Hour)
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	attempts := &MockLoginAttemptRepository{
		GetDeviceLoginsFunc: func(ctx context.Context, email string, since time.Time) ([]*models.DeviceLogin, error) {
			assert.Equal(t, "analyst@example.com", email)
			return []*models.DeviceLogin{
				{DeviceFingerprint: "fp-laptop", IPAddress: "203.0.113.10", LastSeen: lastSeen, FailedCount: 1},
			}, nil
		},
	}

	svc := newTestSecurityService(mockUserRepo, attempts, &MockSecurityEventRepository{}, newTestSecurity())

	logins, err := svc.DeviceLogins(context.Background(), "user123")
	require.NoError(t, err)
	require.Len(t, logins, 1)
	assert.Equal(t, "fp-laptop", logins[0].DeviceFingerprint)
}

func TestSecurityService_LocationRisk_Levels(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	tests := []struct {
		name        string
		distinctIPs int
		failedCount int
		wantLevel   string
	}{
		{"quiet account", 1, 0, "low"},
		{"a few addresses", 3, 0, "medium"},
		{"several failures", 1, 3, "medium"},
		{"many addresses", 6, 0, "high"},
		{"failure burst", 2, 10, "high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := &MockLoginAttemptRepository{
				GetDistinctIPCountFunc: func(ctx context.Context, email string, since time.Time) (int, error) {
					return tt.distinctIPs, nil
				},
				GetFailedAttemptCountFunc: func(ctx context.Context, email string, since time.Time) (int, error) {
					return tt.failedCount, nil
				},
			}
			svc := newTestSecurityService(mockUserRepo, attempts, &MockSecurityEventRepository{}, newTestSecurity())

			risk, err := svc.LocationRisk(context.Background(), "user123")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, risk.Level)
			assert.Equal(t, tt.distinctIPs, risk.DistinctIPs)
			assert.Equal(t, tt.failedCount, risk.FailedCount)
		})
	}
}

func TestSecurityService_Events_ClampsLimit(t *testing.T) {
	var gotLimit, gotOffset int
	events := &MockSecurityEventRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error) {
			gotLimit, gotOffset = limit, offset
			return []*models.SecurityEvent{}, nil
		},
	}

	svc := newTestSecurityService(&MockUserRepository{}, &MockLoginAttemptRepository{}, events, newTestSecurity())
	ctx := context.Background()

	_, err := svc.Events(ctx, "user123", 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)
	assert.Equal(t, 0, gotOffset)

	_, err = svc.Events(ctx, "user123", 500, 20)
	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)
	assert.Equal(t, 20, gotOffset)

	_, err = svc.Events(ctx, "user123", 25, 0)
	require.NoError(t, err)
	assert.Equal(t, 25, gotLimit)
}
