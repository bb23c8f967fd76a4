package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/internal/services"
	pkghttp "github.com/securedbank/sentinel/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   "access",
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password, totpCode string, meta services.RequestMeta) (*services.AuthResponse, error)
	RegisterFunc       func(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResponse, error)
	RefreshTokenFunc   func(ctx context.Context, refreshToken string, meta services.RequestMeta) (*services.AuthResponse, error)
	LogoutFunc         func(ctx context.Context, accessToken string) error
	LogoutAllFunc      func(ctx context.Context, userID string) error
	ForgotPasswordFunc func(ctx context.Context, email string, meta services.RequestMeta) error
	ResetPasswordFunc  func(ctx context.Context, token, newPassword string, meta services.RequestMeta) error
}

func (m *MockAuthService) Login(ctx context.Context, email, password, totpCode string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, totpCode, meta)
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, email, password, name, meta)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.RefreshTokenFunc(ctx, refreshToken, meta)
}

func (m *MockAuthService) Logout(ctx context.Context, accessToken string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, accessToken)
}

func (m *MockAuthService) LogoutAll(ctx context.Context, userID string) error {
	if m.LogoutAllFunc == nil {
		return nil
	}
	return m.LogoutAllFunc(ctx, userID)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string, meta services.RequestMeta) error {
	if m.ForgotPasswordFunc == nil {
		return nil
	}
	return m.ForgotPasswordFunc(ctx, email, meta)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string, meta services.RequestMeta) error {
	if m.ResetPasswordFunc == nil {
		return models.ErrTokenExpired
	}
	return m.ResetPasswordFunc(ctx, token, newPassword, meta)
}

// MockSecurityService implements SecurityServiceInterface for testing
type MockSecurityService struct {
	StatusFunc       func(ctx context.Context, userID string) (*services.SecurityStatus, error)
	DeviceLoginsFunc func(ctx context.Context, userID string) ([]*models.DeviceLogin, error)
	LocationRiskFunc func(ctx context.Context, userID string) (*services.LocationRisk, error)
	EventsFunc       func(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error)
}

func (m *MockSecurityService) Status(ctx context.Context, userID string) (*services.SecurityStatus, error) {
	if m.StatusFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.StatusFunc(ctx, userID)
}

func (m *MockSecurityService) DeviceLogins(ctx context.Context, userID string) ([]*models.DeviceLogin, error) {
	if m.DeviceLoginsFunc == nil {
		return []*models.DeviceLogin{}, nil
	}
	return m.DeviceLoginsFunc(ctx, userID)
}

func (m *MockSecurityService) LocationRisk(ctx context.Context, userID string) (*services.LocationRisk, error) {
	if m.LocationRiskFunc == nil {
		return &services.LocationRisk{Level: "low"}, nil
	}
	return m.LocationRiskFunc(ctx, userID)
}

func (m *MockSecurityService) Events(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error) {
	if m.EventsFunc == nil {
		return []*models.SecurityEvent{}, nil
	}
	return m.EventsFunc(ctx, userID, limit, offset)
}

// MockMFAService implements MFAServiceInterface for testing
type MockMFAService struct {
	InitiateSetupFunc func(ctx context.Context, userID string) (*auth.Enrollment, error)
	ConfirmSetupFunc  func(ctx context.Context, userID, code string, meta services.RequestMeta) error
	DisableFunc       func(ctx context.Context, userID, code string, meta services.RequestMeta) error
}

func (m *MockMFAService) InitiateSetup(ctx context.Context, userID string) (*auth.Enrollment, error) {
	if m.InitiateSetupFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.InitiateSetupFunc(ctx, userID)
}

func (m *MockMFAService) ConfirmSetup(ctx context.Context, userID, code string, meta services.RequestMeta) error {
	if m.ConfirmSetupFunc == nil {
		return models.ErrMFACodeInvalid
	}
	return m.ConfirmSetupFunc(ctx, userID, code, meta)
}

func (m *MockMFAService) Disable(ctx context.Context, userID, code string, meta services.RequestMeta) error {
	if m.DisableFunc == nil {
		return models.ErrMFACodeInvalid
	}
	return m.DisableFunc(ctx, userID, code, meta)
}

// MockCSRFProvider implements CSRFTokenProvider for testing
type MockCSRFProvider struct {
	EnsureFunc func(userID string) (string, error)
}

func (m *MockCSRFProvider) Ensure(userID string) (string, error) {
	if m.EnsureFunc == nil {
		return "csrf_token_" + userID, nil
	}
	return m.EnsureFunc(userID)
}
