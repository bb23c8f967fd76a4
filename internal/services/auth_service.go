package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/internal/security"
	pkgauth "github.com/securedbank/sentinel/pkg/auth"
	"github.com/securedbank/sentinel/pkg/crypto"
	pkglogger "github.com/securedbank/sentinel/pkg/logger"
)

const resetTokenTTL = 1 * time.Hour

// UserRepository is the user persistence surface the services need.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// LoginAttemptRepository records and aggregates login attempts.
type LoginAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	HasSuccessfulLogin(ctx context.Context, email, fingerprint string) (bool, error)
	GetDeviceLogins(ctx context.Context, email string, since time.Time) ([]*models.DeviceLogin, error)
	GetDistinctIPCount(ctx context.Context, email string, since time.Time) (int, error)
	GetFailedAttemptCount(ctx context.Context, email string, since time.Time) (int, error)
	GetLastSuccessTime(ctx context.Context, email string) (*time.Time, error)
}

// SecurityEventRepository persists severity-weighted security events.
type SecurityEventRepository interface {
	Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error)
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error)
	SumSeverityWeights(ctx context.Context, userID string, since time.Time) (int, error)
}

// AlertPublisher pushes security events to connected dashboards.
type AlertPublisher interface {
	Publish(event *models.SecurityEvent)
}

// EmailSender delivers transactional security email.
type EmailSender interface {
	SendPasswordReset(ctx context.Context, toEmail, resetURL string) error
	SendSecurityAlert(ctx context.Context, toEmail, subject, message string) error
}

// RequestMeta carries the client attributes that bind sessions and
// attempts to a device.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Fingerprint derives the device fingerprint for this request.
func (m RequestMeta) Fingerprint() string {
	return security.DeviceFingerprint(m.IPAddress, m.UserAgent)
}

// AuthService handles authentication business logic
type AuthService struct {
	users       UserRepository
	attempts    LoginAttemptRepository
	events      SecurityEventRepository
	tm          *auth.TokenManager
	totp        *auth.TOTPManager
	sec         *security.Services
	timing      *auth.TimingDelay
	cipher      *crypto.Cipher
	emailer     EmailSender
	alerts      AlertPublisher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	attemptRetention time.Duration
	resetBaseURL     string
}

// NewAuthService creates a new AuthService. emailer and alerts may be
// nil; attempts and events may be nil when running without a database.
func NewAuthService(
	users UserRepository,
	attempts LoginAttemptRepository,
	events SecurityEventRepository,
	tm *auth.TokenManager,
	totp *auth.TOTPManager,
	sec *security.Services,
	cipher *crypto.Cipher,
	emailer EmailSender,
	alerts AlertPublisher,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	attemptRetention time.Duration,
	resetBaseURL string,
) *AuthService {
	return &AuthService{
		users:            users,
		attempts:         attempts,
		events:           events,
		tm:               tm,
		totp:             totp,
		sec:              sec,
		timing:           auth.NewTimingDelay(100*time.Millisecond, 300*time.Millisecond),
		cipher:           cipher,
		emailer:          emailer,
		alerts:           alerts,
		logger:           logger,
		auditLogger:      auditLogger,
		attemptRetention: attemptRetention,
		resetBaseURL:     strings.TrimRight(resetBaseURL, "/"),
	}
}

// UserResponse represents a user in the HTTP response
type UserResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	MFAEnabled bool   `json:"mfa_enabled"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	CSRFToken    string        `json:"csrf_token"`
	SessionID    string        `json:"session_id"`
	ExpiresAt    time.Time     `json:"expires_at"`
	User         *UserResponse `json:"user"`
}

// Login authenticates a user and establishes a fingerprint-bound
// session. Response timing is equalized across failure modes so a
// caller cannot distinguish an unknown email from a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password, totpCode string, meta RequestMeta) (*AuthResponse, error) {
	start := time.Now()
	defer s.timing.WaitFrom(start)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		s.logger.Warn("login attempt with empty email")
		return nil, models.ErrUnauthorized
	}

	fingerprint := meta.Fingerprint()

	if s.sec.Throttle.IsLocked(email) {
		s.recordAttempt(ctx, email, meta, fingerprint, false, "throttled")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			IPAddress:     meta.IPAddress,
			Fingerprint:   fingerprint,
			FailureReason: "throttled",
			Success:       false,
		})
		return nil, models.ErrTooManyAttempts
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.failLogin(ctx, email, nil, meta, fingerprint, "invalid_credentials")
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		s.recordAttempt(ctx, email, meta, fingerprint, false, "account_blocked")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			IPAddress:     meta.IPAddress,
			Fingerprint:   fingerprint,
			FailureReason: "account_blocked",
			Success:       false,
		})
		return nil, err
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		locked := s.failLogin(ctx, email, user, meta, fingerprint, "invalid_credentials")
		if locked {
			return nil, models.ErrTooManyAttempts
		}
		return nil, models.ErrUnauthorized
	}

	if user.MFAEnabled {
		if totpCode == "" {
			return nil, models.ErrMFARequired
		}
		secret, err := s.mfaSecret(user)
		if err != nil {
			s.logger.Error("failed to decrypt MFA secret", slog.String("user_id", user.ID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		valid, err := s.totp.ValidateCode(secret, totpCode)
		if err != nil || !valid {
			locked := s.failLogin(ctx, email, user, meta, fingerprint, "invalid_mfa_code")
			if locked {
				return nil, models.ErrTooManyAttempts
			}
			return nil, models.ErrMFACodeInvalid
		}
	}

	return s.establishSession(ctx, user, meta, fingerprint)
}

// establishSession creates the session, tokens, and CSRF token for an
// authenticated user and records the successful attempt.
func (s *AuthService) establishSession(ctx context.Context, user *models.User, meta RequestMeta, fingerprint string) (*AuthResponse, error) {
	s.sec.Throttle.RecordAttempt(strings.ToLower(user.Email), true)

	newDevice := false
	if s.attempts != nil {
		seen, err := s.attempts.HasSuccessfulLogin(ctx, user.Email, fingerprint)
		if err != nil {
			s.logger.Error("failed to check device history", slog.Any("error", err))
		} else {
			newDevice = !seen
		}
	}

	session, err := s.sec.Sessions.Create(user.ID, fingerprint, nil)
	if err != nil {
		s.logger.Error("failed to create session", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email, session.ID, fingerprint)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email, session.ID, fingerprint)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	csrfToken, err := s.sec.CSRF.Generate(user.ID)
	if err != nil {
		s.logger.Error("failed to generate csrf token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.recordAttempt(ctx, user.Email, meta, fingerprint, true, "")

	if newDevice {
		s.publishEvent(ctx, &models.SecurityEvent{
			EventType:   models.SecurityEventLoginSuccess,
			Severity:    models.SeverityLow,
			UserID:      &user.ID,
			IPAddress:   &meta.IPAddress,
			UserAgent:   &meta.UserAgent,
			Fingerprint: &fingerprint,
			Message:     "login from a device not seen before",
		})
		if s.emailer != nil {
			if err := s.emailer.SendSecurityAlert(ctx, user.Email,
				"New device sign-in",
				"Your account was just used to sign in from a device we have not seen before. If this was not you, reset your password immediately.",
			); err != nil {
				s.logger.Error("failed to send new device alert", slog.Any("error", err))
			}
		}
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:   "login_success",
		UserID:      user.ID,
		IPAddress:   meta.IPAddress,
		Fingerprint: fingerprint,
		Success:     true,
	})

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CSRFToken:    csrfToken,
		SessionID:    session.ID,
		ExpiresAt:    session.ExpiresAt,
		User:         userModelToResponse(user),
	}, nil
}

// failLogin records a failed attempt in the throttle and database and
// emits the matching security event. Returns true when this failure
// tripped the lockout.
func (s *AuthService) failLogin(ctx context.Context, email string, user *models.User, meta RequestMeta, fingerprint, reason string) bool {
	decision := s.sec.Throttle.RecordAttempt(email, false)
	s.recordAttempt(ctx, email, meta, fingerprint, false, reason)

	var userID *string
	if user != nil {
		userID = &user.ID
	}

	s.publishEvent(ctx, &models.SecurityEvent{
		EventType:   models.SecurityEventLoginFailed,
		Severity:    models.SeverityMedium,
		UserID:      userID,
		IPAddress:   &meta.IPAddress,
		UserAgent:   &meta.UserAgent,
		Fingerprint: &fingerprint,
		Message:     "failed login attempt",
		Metadata:    models.EventMetadata{"reason": reason},
	})

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		IPAddress:     meta.IPAddress,
		Fingerprint:   fingerprint,
		FailureReason: reason,
		Success:       false,
	})

	if !decision.Allowed {
		s.publishEvent(ctx, &models.SecurityEvent{
			EventType:   models.SecurityEventLockout,
			Severity:    models.SeverityHigh,
			UserID:      userID,
			IPAddress:   &meta.IPAddress,
			UserAgent:   &meta.UserAgent,
			Fingerprint: &fingerprint,
			Message:     "account locked after repeated failures",
		})
		return true
	}
	return false
}

// RefreshToken rotates the token pair. The refresh token must carry the
// fingerprint of the presenting device and reference a live session; a
// fingerprint mismatch destroys the session.
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string, meta RequestMeta) (*AuthResponse, error) {
	if refreshTokenString = strings.TrimSpace(refreshTokenString); refreshTokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(refreshTokenString)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != "refresh" {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	fingerprint := meta.Fingerprint()
	if claims.Fingerprint != "" && claims.Fingerprint != fingerprint {
		s.sec.Sessions.Destroy(claims.SessionID)
		s.publishEvent(ctx, &models.SecurityEvent{
			EventType:   models.SecurityEventSessionHijack,
			Severity:    models.SeverityCritical,
			UserID:      &claims.UserID,
			IPAddress:   &meta.IPAddress,
			UserAgent:   &meta.UserAgent,
			Fingerprint: &fingerprint,
			Message:     "refresh token presented from a different device",
		})
		return nil, models.ErrUnauthorized
	}

	session, ok := s.sec.Sessions.Get(claims.SessionID, fingerprint)
	if !ok {
		s.logger.Info("refresh blocked: session gone", slog.String("user_id", claims.UserID))
		return nil, models.ErrSessionInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		s.logger.Info("token refresh blocked due to account state",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status))
		return nil, models.ErrUnauthorized
	}

	// Invalidate tokens if password changed after token was issued
	if user.PasswordChangedAt != nil && claims.IssuedAt != nil {
		if claims.IssuedAt.Time.Before(*user.PasswordChangedAt) {
			s.logger.Info("token refresh blocked: issued before password change",
				slog.String("user_id", user.ID))
			return nil, models.ErrUnauthorized
		}
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email, session.ID, fingerprint)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	newRefreshToken, err := s.tm.GenerateRefreshToken(user.ID, user.Email, session.ID, fingerprint)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	csrfToken, err := s.sec.CSRF.Ensure(user.ID)
	if err != nil {
		s.logger.Error("failed to ensure csrf token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		CSRFToken:    csrfToken,
		SessionID:    session.ID,
		ExpiresAt:    session.ExpiresAt,
		User:         userModelToResponse(user),
	}, nil
}

// Register creates a new user account and signs it in.
func (s *AuthService) Register(ctx context.Context, email, password, name string, meta RequestMeta) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	user := &models.User{
		Email:             email,
		PasswordHash:      hashedPassword,
		Name:              name,
		Role:              "analyst",
		PasswordChangedAt: &now,
	}

	createdUser, err := s.users.Create(ctx, user)
	if err != nil {
		s.logger.Error("failed to create user", slog.Any("error", err))
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction("user_registered", createdUser.ID, meta.IPAddress, nil)

	return s.establishSession(ctx, createdUser, meta, meta.Fingerprint())
}

// Logout destroys the session behind the token and revokes the user's
// CSRF token.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.tm.ValidateToken(accessToken)
	if err != nil {
		return models.ErrUnauthorized
	}

	if claims.SessionID != "" {
		s.sec.Sessions.Destroy(claims.SessionID)
	}
	s.sec.CSRF.Revoke(claims.UserID)

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// LogoutAll destroys every session for the user, on every device.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	s.sec.Sessions.DestroyAllForUser(userID)
	s.sec.CSRF.Revoke(userID)

	s.logger.Info("user logged out from all devices", slog.String("user_id", userID))
	s.auditLogger.LogAccountAction("logout_all_devices", userID, "", nil)
	return nil
}

// ForcedLogout ends every session for the user in response to a
// security signal and records the event.
func (s *AuthService) ForcedLogout(ctx context.Context, userID, reason string) {
	s.sec.Sessions.DestroyAllForUser(userID)
	s.sec.CSRF.Revoke(userID)

	s.publishEvent(ctx, &models.SecurityEvent{
		EventType: models.SecurityEventForcedLogout,
		Severity:  models.SeverityHigh,
		UserID:    &userID,
		Message:   reason,
	})
	s.auditLogger.LogSecurityEvent(pkglogger.AuditEvent{
		EventType: "forced_logout",
		UserID:    userID,
		Severity:  models.SeverityHigh,
		Metadata:  map[string]string{"reason": reason},
	})
}

// ForgotPassword issues a single-use reset token and mails the reset
// link. The response is identical whether or not the email exists.
func (s *AuthService) ForgotPassword(ctx context.Context, email string, meta RequestMeta) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		}
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return nil
	}

	s.sec.Tokens.Set("reset:"+token, user.ID, "password_reset", resetTokenTTL)

	if s.emailer != nil {
		resetURL := s.resetBaseURL + "/reset-password?token=" + token
		if err := s.emailer.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
			s.logger.Error("failed to send password reset email", slog.Any("error", err))
		}
	}

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, meta.IPAddress, nil)
	return nil
}

// ResetPassword consumes a reset token, replaces the password, and
// terminates every existing session for the account.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string, meta RequestMeta) error {
	cached, ok := s.sec.Tokens.Get("reset:" + token)
	if !ok || cached.Type != "password_reset" {
		return models.ErrTokenExpired
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	userID := cached.Value
	if err := s.users.UpdatePassword(ctx, userID, hashedPassword); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Single use: burn the token and end every session
	s.sec.Tokens.Delete("reset:" + token)
	s.sec.Sessions.DestroyAllForUser(userID)
	s.sec.CSRF.Revoke(userID)

	if user, err := s.users.GetByID(ctx, userID); err == nil {
		s.sec.Throttle.Reset(strings.ToLower(user.Email))
	}

	s.publishEvent(ctx, &models.SecurityEvent{
		EventType: models.SecurityEventPasswordReset,
		Severity:  models.SeverityMedium,
		UserID:    &userID,
		IPAddress: &meta.IPAddress,
		Message:   "password reset completed",
	})
	s.auditLogger.LogAccountAction("password_reset_completed", userID, meta.IPAddress, nil)

	s.logger.Info("password reset", slog.String("user_id", userID))
	return nil
}

// recordAttempt persists an attempt row when a database is attached.
func (s *AuthService) recordAttempt(ctx context.Context, email string, meta RequestMeta, fingerprint string, success bool, reason string) {
	if s.attempts == nil {
		return
	}

	attempt := &models.LoginAttempt{
		Email:             email,
		IPAddress:         meta.IPAddress,
		UserAgent:         meta.UserAgent,
		Success:           success,
		DeviceFingerprint: fingerprint,
		ExpiresAt:         time.Now().Add(s.attemptRetention),
	}
	if reason != "" {
		attempt.FailureReason = &reason
	}

	if err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
	}
}

// publishEvent persists a security event and pushes it to the alert
// stream. Persistence failures are logged, never surfaced to callers.
func (s *AuthService) publishEvent(ctx context.Context, event *models.SecurityEvent) {
	stored := event
	if s.events != nil {
		created, err := s.events.Create(ctx, event)
		if err != nil {
			s.logger.Error("failed to persist security event",
				slog.String("event_type", event.EventType),
				slog.Any("error", err))
		} else {
			stored = created
		}
	}

	if s.alerts != nil {
		s.alerts.Publish(stored)
	}
}

// mfaSecret decrypts the stored TOTP secret. Secrets written before
// encryption was introduced are returned as-is.
func (s *AuthService) mfaSecret(user *models.User) (string, error) {
	if s.cipher == nil {
		return user.MFASecret, nil
	}
	secret, err := s.cipher.Decrypt(user.MFASecret)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt TOTP secret: %w", err)
	}
	return secret, nil
}

// validateAccountState checks if user account is in valid state for authentication
func validateAccountState(user *models.User) error {
	switch user.Status {
	case "disabled":
		return models.ErrAccountDisabled
	case "suspended":
		return models.ErrAccountSuspended
	case "active":
		// Continue to other checks
	default:
		return fmt.Errorf("unknown account status: %s", user.Status)
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return models.ErrAccountLocked
	}

	return nil
}

// userModelToResponse converts a user model to response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
		MFAEnabled: user.MFAEnabled,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  user.UpdatedAt.Format(time.RFC3339),
	}
}

func generateResetToken() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}
