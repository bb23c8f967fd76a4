package services

import (
	"context"
	"log/slog"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/pkg/crypto"
	pkglogger "github.com/securedbank/sentinel/pkg/logger"
)

// MFAService manages TOTP enrollment for the dashboard's two-factor
// setting. Secrets are stored AES-GCM encrypted on the user record and
// only flip MFAEnabled once the user proves possession of the
// authenticator by confirming a code.
type MFAService struct {
	users       UserRepository
	events      SecurityEventRepository
	totp        *auth.TOTPManager
	cipher      *crypto.Cipher
	alerts      AlertPublisher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewMFAService creates a new MFAService. events and alerts may be nil.
func NewMFAService(
	users UserRepository,
	events SecurityEventRepository,
	totp *auth.TOTPManager,
	cipher *crypto.Cipher,
	alerts AlertPublisher,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *MFAService {
	return &MFAService{
		users:       users,
		events:      events,
		totp:        totp,
		cipher:      cipher,
		alerts:      alerts,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// InitiateSetup generates a new TOTP secret for the user and stores it
// pending confirmation. MFAEnabled stays false until ConfirmSetup
// succeeds, so an abandoned setup never locks the user out.
func (s *MFAService) InitiateSetup(ctx context.Context, userID string) (*auth.Enrollment, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.MFAEnabled {
		return nil, models.ErrConflict
	}

	enrollment, err := s.totp.GenerateEnrollment(user.Email)
	if err != nil {
		s.logger.Error("failed to generate TOTP enrollment", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	encrypted, err := s.cipher.Encrypt(enrollment.Secret)
	if err != nil {
		s.logger.Error("failed to encrypt TOTP secret", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user.MFASecret = encrypted
	if _, err := s.users.Update(ctx, userID, user); err != nil {
		return nil, err
	}

	s.logger.Info("TOTP setup initiated", slog.String("user_id", userID))
	return enrollment, nil
}

// ConfirmSetup verifies a code against the pending secret and enables
// MFA on the account.
func (s *MFAService) ConfirmSetup(ctx context.Context, userID, code string, meta RequestMeta) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.MFAEnabled {
		return models.ErrConflict
	}
	if user.MFASecret == "" {
		return models.ErrBadRequest
	}

	secret, err := s.cipher.Decrypt(user.MFASecret)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	valid, err := s.totp.ValidateCode(secret, code)
	if err != nil || !valid {
		return models.ErrMFACodeInvalid
	}

	user.MFAEnabled = true
	if _, err := s.users.Update(ctx, userID, user); err != nil {
		return err
	}

	fingerprint := meta.Fingerprint()
	s.recordEvent(ctx, &models.SecurityEvent{
		EventType:   models.SecurityEventMFAEnrolled,
		Severity:    models.SeverityLow,
		UserID:      &userID,
		IPAddress:   &meta.IPAddress,
		UserAgent:   &meta.UserAgent,
		Fingerprint: &fingerprint,
		Message:     "two-factor authentication enabled",
	})

	s.auditLogger.LogAccountAction("mfa_enrolled", userID, meta.IPAddress, nil)
	return nil
}

// Disable turns MFA off after verifying a current code, so a stolen
// session alone cannot strip the second factor.
func (s *MFAService) Disable(ctx context.Context, userID, code string, meta RequestMeta) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !user.MFAEnabled {
		return models.ErrBadRequest
	}

	secret, err := s.cipher.Decrypt(user.MFASecret)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	valid, err := s.totp.ValidateCode(secret, code)
	if err != nil || !valid {
		return models.ErrMFACodeInvalid
	}

	user.MFAEnabled = false
	user.MFASecret = ""
	if _, err := s.users.Update(ctx, userID, user); err != nil {
		return err
	}

	fingerprint := meta.Fingerprint()
	s.recordEvent(ctx, &models.SecurityEvent{
		EventType:   models.SecurityEventMFADisabled,
		Severity:    models.SeverityMedium,
		UserID:      &userID,
		IPAddress:   &meta.IPAddress,
		UserAgent:   &meta.UserAgent,
		Fingerprint: &fingerprint,
		Message:     "two-factor authentication disabled",
	})

	s.auditLogger.LogAccountAction("mfa_disabled", userID, meta.IPAddress, nil)
	return nil
}

func (s *MFAService) recordEvent(ctx context.Context, event *models.SecurityEvent) {
	stored := event
	if s.events != nil {
		created, err := s.events.Create(ctx, event)
		if err != nil {
			s.logger.Error("failed to record security event",
				slog.String("event_type", event.EventType),
				slog.Any("error", err),
			)
		} else {
			stored = created
		}
	}
	if s.alerts != nil {
		s.alerts.Publish(stored)
	}
}
