package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/pkg/crypto"
	pkglogger "github.com/securedbank/sentinel/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMFAService(t *testing.T, users *MockUserRepository, events *MockSecurityEventRepository) (*MFAService, *crypto.Cipher) {
	t.Helper()

	cipher, err := crypto.NewCipher("test-encryption-secret")
	require.NoError(t, err)

	logger := slog.Default()
	svc := NewMFAService(
		users,
		events,
		auth.NewTOTPManager("SecuredBank Test"),
		cipher,
		nil,
		logger,
		pkglogger.NewAuditLogger(logger),
	)
	return svc, cipher
}

func TestMFAService_InitiateSetup_Success(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	var saved *models.User
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateFunc: func(ctx context.Context, id string, u *models.User) (*models.User, error) {
			saved = u
			return u, nil
		},
	}

	svc, cipher := newTestMFAService(t, mockUserRepo, &MockSecurityEventRepository{})

	enrollment, err := svc.InitiateSetup(context.Background(), "user123")
	require.NoError(t, err)

	assert.NotEmpty(t, enrollment.Secret)
	assert.Contains(t, enrollment.ProvisioningURL, "otpauth://totp/")
	assert.True(t, strings.HasPrefix(enrollment.QRCodeDataURL, "data:image/png;base64,"))

	require.NotNil(t, saved)
	assert.False(t, saved.MFAEnabled)
	assert.NotEqual(t, enrollment.Secret, saved.MFASecret)

	decrypted, err := cipher.Decrypt(saved.MFASecret)
	require.NoError(t, err)
	assert.Equal(t, enrollment.Secret, decrypted)
}

func TestMFAService_InitiateSetup_AlreadyEnabled(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	user.MFAEnabled = true
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc, _ := newTestMFAService(t, mockUserRepo, &MockSecurityEventRepository{})

	_, err := svc.InitiateSetup(context.Background(), "user123")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestMFAService_ConfirmSetup_Success(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateFunc: func(ctx context.Context, id string, u *models.User) (*models.User, error) {
			user = u
			return u, nil
		},
	}
	events := &MockSecurityEventRepository{}

	svc, _ := newTestMFAService(t, mockUserRepo, events)
	ctx := context.Background()

	enrollment, err := svc.InitiateSetup(ctx, "user123")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmSetup(ctx, "user123", code, testMeta))

	assert.True(t, user.MFAEnabled)
	assert.True(t, events.HasEventType(models.SecurityEventMFAEnrolled))
}

func TestMFAService_ConfirmSetup_WrongCode(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateFunc: func(ctx context.Context, id string, u *models.User) (*models.User, error) {
			user = u
			return u, nil
		},
	}

	svc, _ := newTestMFAService(t, mockUserRepo, &MockSecurityEventRepository{})
	ctx := context.Background()

	_, err := svc.InitiateSetup(ctx, "user123")
	require.NoError(t, err)

	err = svc.ConfirmSetup(ctx, "user123", "000000", testMeta)
	assert.ErrorIs(t, err, models.ErrMFACodeInvalid)
	assert.False(t, user.MFAEnabled)
}

func TestMFAService_ConfirmSetup_NoPendingSecret(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc, _ := newTestMFAService(t, mockUserRepo, &MockSecurityEventRepository{})

	err := svc.ConfirmSetup(context.Background(), "user123", "123456", testMeta)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestMFAService_Disable_Success(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateFunc: func(ctx context.Context, id string, u *models.User) (*models.User, error) {
			user = u
			return u, nil
		},
	}
	events := &MockSecurityEventRepository{}

	svc, _ := newTestMFAService(t, mockUserRepo, events)
	ctx := context.Background()

	enrollment, err := svc.InitiateSetup(ctx, "user123")
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmSetup(ctx, "user123", code, testMeta))

	code, err = totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.Disable(ctx, "user123", code, testMeta))

	assert.False(t, user.MFAEnabled)
	assert.Empty(t, user.MFASecret)
	assert.True(t, events.HasEventType(models.SecurityEventMFADisabled))
}

func TestMFAService_Disable_WrongCode(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
		UpdateFunc: func(ctx context.Context, id string, u *models.User) (*models.User, error) {
			user = u
			return u, nil
		},
	}

	svc, _ := newTestMFAService(t, mockUserRepo, &MockSecurityEventRepository{})
	ctx := context.Background()

	enrollment, err := svc.InitiateSetup(ctx, "user123")
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmSetup(ctx, "user123", code, testMeta))

	err = svc.Disable(ctx, "user123", "000000", testMeta)
	assert.ErrorIs(t, err, models.ErrMFACodeInvalid)
	assert.True(t, user.MFAEnabled)
}

func TestMFAService_Disable_NotEnabled(t *testing.T) {
	user := NewTestUser("user123", "analyst@example.com", "Jane Analyst")
	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc, _ := newTestMFAService(t, mockUserRepo, &MockSecurityEventRepository{})

	err := svc.Disable(context.Background(), "user123", "123456", testMeta)
	assert.ErrorIs(t, err, models.ErrBadRequest)
}
