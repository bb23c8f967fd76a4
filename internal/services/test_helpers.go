package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/internal/security"
	pkgauth "github.com/securedbank/sentinel/pkg/auth"
	pkglogger "github.com/securedbank/sentinel/pkg/logger"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc         func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePasswordFunc func(ctx context.Context, id, passwordHash string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, user)
	}
	return user, nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

// MockLoginAttemptRepository implements LoginAttemptRepository for testing
type MockLoginAttemptRepository struct {
	RecordAttemptFunc         func(ctx context.Context, attempt *models.LoginAttempt) error
	HasSuccessfulLoginFunc    func(ctx context.Context, email, fingerprint string) (bool, error)
	GetDeviceLoginsFunc       func(ctx context.Context, email string, since time.Time) ([]*models.DeviceLogin, error)
	GetDistinctIPCountFunc    func(ctx context.Context, email string, since time.Time) (int, error)
	GetFailedAttemptCountFunc func(ctx context.Context, email string, since time.Time) (int, error)
	GetLastSuccessTimeFunc    func(ctx context.Context, email string) (*time.Time, error)

	Recorded []*models.LoginAttempt
}

func (m *MockLoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	m.Recorded = append(m.Recorded, attempt)
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockLoginAttemptRepository) HasSuccessfulLogin(ctx context.Context, email, fingerprint string) (bool, error) {
	if m.HasSuccessfulLoginFunc != nil {
		return m.HasSuccessfulLoginFunc(ctx, email, fingerprint)
	}
	return true, nil
}

func (m *MockLoginAttemptRepository) GetDeviceLogins(ctx context.Context, email string, since time.Time) ([]*models.DeviceLogin, error) {
	if m.GetDeviceLoginsFunc != nil {
		return m.GetDeviceLoginsFunc(ctx, email, since)
	}
	return []*models.DeviceLogin{}, nil
}

func (m *MockLoginAttemptRepository) GetDistinctIPCount(ctx context.Context, email string, since time.Time) (int, error) {
	if m.GetDistinctIPCountFunc != nil {
		return m.GetDistinctIPCountFunc(ctx, email, since)
	}
	return 0, nil
}

func (m *MockLoginAttemptRepository) GetFailedAttemptCount(ctx context.Context, email string, since time.Time) (int, error) {
	if m.GetFailedAttemptCountFunc != nil {
		return m.GetFailedAttemptCountFunc(ctx, email, since)
	}
	return 0, nil
}

func (m *MockLoginAttemptRepository) GetLastSuccessTime(ctx context.Context, email string) (*time.Time, error) {
	if m.GetLastSuccessTimeFunc != nil {
		return m.GetLastSuccessTimeFunc(ctx, email)
	}
	return nil, nil
}

// MockSecurityEventRepository implements SecurityEventRepository for testing
type MockSecurityEventRepository struct {
	CreateFunc             func(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error)
	GetByUserIDFunc        func(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error)
	SumSeverityWeightsFunc func(ctx context.Context, userID string, since time.Time) (int, error)

	Created []*models.SecurityEvent
}

func (m *MockSecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error) {
	m.Created = append(m.Created, event)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, event)
	}
	return event, nil
}

func (m *MockSecurityEventRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID, limit, offset)
	}
	return []*models.SecurityEvent{}, nil
}

func (m *MockSecurityEventRepository) SumSeverityWeights(ctx context.Context, userID string, since time.Time) (int, error) {
	if m.SumSeverityWeightsFunc != nil {
		return m.SumSeverityWeightsFunc(ctx, userID, since)
	}
	return 0, nil
}

// HasEventType reports whether an event of the given type was recorded.
func (m *MockSecurityEventRepository) HasEventType(eventType string) bool {
	for _, e := range m.Created {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}

// MockEmailSender captures outbound email for assertions
type MockEmailSender struct {
	SendPasswordResetFunc func(ctx context.Context, toEmail, resetURL string) error

	ResetEmails []string
	ResetURLs   []string
	Alerts      []string
}

func (m *MockEmailSender) SendPasswordReset(ctx context.Context, toEmail, resetURL string) error {
	m.ResetEmails = append(m.ResetEmails, toEmail)
	m.ResetURLs = append(m.ResetURLs, resetURL)
	if m.SendPasswordResetFunc != nil {
		return m.SendPasswordResetFunc(ctx, toEmail, resetURL)
	}
	return nil
}

func (m *MockEmailSender) SendSecurityAlert(ctx context.Context, toEmail, subject, message string) error {
	m.Alerts = append(m.Alerts, subject)
	return nil
}

// MockAlertPublisher records published events
type MockAlertPublisher struct {
	Published []*models.SecurityEvent
}

func (m *MockAlertPublisher) Publish(event *models.SecurityEvent) {
	m.Published = append(m.Published, event)
}

// NewTestUser creates an active user for tests
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Email:     email,
		Name:      name,
		Role:      "analyst",
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestUserWithPassword creates a user with a bcrypt hash of password
func NewTestUserWithPassword(id, email, name, password string) *models.User {
	user := NewTestUser(id, email, name)
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	user.PasswordHash = hash
	return user
}

// NewTestUserWithStatus creates a user with the specified account status
func NewTestUserWithStatus(id, email, name, status string) *models.User {
	user := NewTestUser(id, email, name)
	user.Status = status
	return user
}

// newTestSecurity builds an in-memory security services aggregate
func newTestSecurity() *security.Services {
	return security.NewServices(security.ServicesConfig{})
}

// newTestAuthService wires an AuthService over mocks with a real token
// manager and in-memory security primitives.
func newTestAuthService(
	users *MockUserRepository,
	attempts *MockLoginAttemptRepository,
	events *MockSecurityEventRepository,
	sec *security.Services,
	emailer EmailSender,
) *AuthService {
	logger := slog.Default()
	tm := auth.NewTokenManager("test-secret-for-service-tests", 15*time.Minute, 7*24*time.Hour)
	totp := auth.NewTOTPManager("SecuredBank Test")

	return NewAuthService(
		users,
		attempts,
		events,
		tm,
		totp,
		sec,
		nil,
		emailer,
		nil,
		logger,
		pkglogger.NewAuditLogger(logger),
		30*24*time.Hour,
		"https://app.example.com",
	)
}
