package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/internal/security"
)

const (
	// scoreWindow is how far back security events count against the score.
	scoreWindow = 14 * 24 * time.Hour
	// deviceWindow is how far back the device-logins feed reaches.
	deviceWindow = 30 * 24 * time.Hour
	// riskWindow is the interval examined by the location risk heuristic.
	riskWindow = 24 * time.Hour
)

// SecurityStatus is the dashboard's security posture summary.
type SecurityStatus struct {
	SecurityScore  int        `json:"security_score"`
	ActiveSessions int        `json:"active_sessions"`
	MFAEnabled     bool       `json:"mfa_enabled"`
	AccountLocked  bool       `json:"account_locked"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	GeneratedAt    time.Time  `json:"generated_at"`
}

// LocationRisk is the heuristic risk assessment for recent sign-in
// locations.
type LocationRisk struct {
	Level       string `json:"level"` // "low", "medium", "high"
	DistinctIPs int    `json:"distinct_ips"`
	FailedCount int    `json:"failed_count"`
	Window      string `json:"window"`
}

// SecurityService serves the read-side security endpoints: posture
// status, per-device login history, location risk, and the event feed.
type SecurityService struct {
	users    UserRepository
	attempts LoginAttemptRepository
	events   SecurityEventRepository
	sec      *security.Services
	logger   *slog.Logger
}

// NewSecurityService creates a new SecurityService
func NewSecurityService(
	users UserRepository,
	attempts LoginAttemptRepository,
	events SecurityEventRepository,
	sec *security.Services,
	logger *slog.Logger,
) *SecurityService {
	return &SecurityService{
		users:    users,
		attempts: attempts,
		events:   events,
		sec:      sec,
		logger:   logger,
	}
}

// Status computes the user's current security posture. The score starts
// at 100 and loses the severity weight of every event inside the
// scoring window, floored at zero.
func (s *SecurityService) Status(ctx context.Context, userID string) (*SecurityStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	score := 100
	if s.events != nil {
		penalty, err := s.events.SumSeverityWeights(ctx, userID, time.Now().Add(-scoreWindow))
		if err != nil {
			s.logger.Error("failed to sum severity weights", slog.Any("error", err))
		} else {
			score -= penalty
		}
	}
	if score < 0 {
		score = 0
	}

	var lastLogin *time.Time
	if s.attempts != nil {
		lastLogin, err = s.attempts.GetLastSuccessTime(ctx, user.Email)
		if err != nil {
			s.logger.Error("failed to get last login time", slog.Any("error", err))
			lastLogin = nil
		}
	}

	locked := user.LockedUntil != nil && time.Now().Before(*user.LockedUntil)

	return &SecurityStatus{
		SecurityScore:  score,
		ActiveSessions: s.sec.Sessions.ActiveSessionCount(userID),
		MFAEnabled:     user.MFAEnabled,
		AccountLocked:  locked,
		LastLogin:      lastLogin,
		GeneratedAt:    time.Now(),
	}, nil
}

// DeviceLogins returns the user's recent login activity grouped per
// device.
func (s *SecurityService) DeviceLogins(ctx context.Context, userID string) ([]*models.DeviceLogin, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.attempts.GetDeviceLogins(ctx, user.Email, time.Now().Add(-deviceWindow))
}

// LocationRisk scores the spread of recent sign-in addresses. Many
// distinct addresses or a burst of failures inside the window raise
// the level.
func (s *SecurityService) LocationRisk(ctx context.Context, userID string) (*LocationRisk, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	since := time.Now().Add(-riskWindow)

	distinctIPs, err := s.attempts.GetDistinctIPCount(ctx, user.Email, since)
	if err != nil {
		return nil, err
	}

	failedCount, err := s.attempts.GetFailedAttemptCount(ctx, user.Email, since)
	if err != nil {
		return nil, err
	}

	level := "low"
	switch {
	case distinctIPs > 5 || failedCount >= 10:
		level = "high"
	case distinctIPs > 2 || failedCount >= 3:
		level = "medium"
	}

	return &LocationRisk{
		Level:       level,
		DistinctIPs: distinctIPs,
		FailedCount: failedCount,
		Window:      riskWindow.String(),
	}, nil
}

// Events returns the user's security event feed, newest first.
func (s *SecurityService) Events(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.events.GetByUserID(ctx, userID, limit, offset)
}
