package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/config"
	"github.com/securedbank/sentinel/internal/database"
	"github.com/securedbank/sentinel/internal/handlers"
	middlewareCustom "github.com/securedbank/sentinel/internal/middleware"
	"github.com/securedbank/sentinel/internal/notify"
	"github.com/securedbank/sentinel/internal/routes"
	"github.com/securedbank/sentinel/internal/security"
	"github.com/securedbank/sentinel/internal/services"
	"github.com/securedbank/sentinel/pkg/crypto"
	pkghttp "github.com/securedbank/sentinel/pkg/http"
	pkglogger "github.com/securedbank/sentinel/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailService captures sent emails for test assertions
type MockEmailService struct {
	SentEmails []SentEmail
	mu         sync.Mutex
}

// SendPasswordReset records the reset email; the reset URL lands in Body
func (m *MockEmailService) SendPasswordReset(ctx context.Context, toEmail, resetURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{
		To:      toEmail,
		Subject: "Reset your SecuredBank password",
		Body:    resetURL,
	})
	return nil
}

// SendSecurityAlert records the alert email
func (m *MockEmailService) SendSecurityAlert(ctx context.Context, toEmail, subject, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{
		To:      toEmail,
		Subject: subject,
		Body:    message,
	})
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	Pool         *database.DB
	EmailService *MockEmailService
	Config       *config.Config

	// Dependency references for inspection in tests
	Security     *security.Services
	TokenManager *auth.TokenManager
	Hub          *notify.Hub
	logger       *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database + mocked email
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			TOTPIssuer:         "SecuredBankTest",
			CookieSameSite:     "strict",
		},
		Security: config.SecurityConfig{
			MaxLoginAttempts:   5,
			LockoutWindow:      15 * time.Minute,
			CSRFTokenTTL:       24 * time.Hour,
			SessionMaxAge:      30 * time.Minute,
			SessionIdleTimeout: 30 * time.Minute,
			SessionRenewWindow: 5 * time.Minute,
			AttemptRetention:   30 * 24 * time.Hour,
			EncryptionSecret:   "test-encryption-secret",
		},
		Email: config.EmailConfig{
			FromAddress: "security@test.local",
			BaseURL:     "http://localhost:3000",
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
		},
	}

	userRepo, loginAttemptRepo, securityEventRepo := InitializeRepositories(db)

	mockEmail := &MockEmailService{
		SentEmails: []SentEmail{},
	}

	cipher, err := crypto.NewCipher(cfg.Security.EncryptionSecret)
	if err != nil {
		panic(fmt.Sprintf("failed to create cipher: %v", err))
	}

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)
	totpManager := auth.NewTOTPManager(cfg.Auth.TOTPIssuer)

	sec := security.NewServices(security.ServicesConfig{
		MaxAttempts:   cfg.Security.MaxLoginAttempts,
		LockoutWindow: cfg.Security.LockoutWindow,
		CSRFTokenTTL:  cfg.Security.CSRFTokenTTL,
		Session: security.SessionConfig{
			MaxAge:      cfg.Security.SessionMaxAge,
			IdleTimeout: cfg.Security.SessionIdleTimeout,
			RenewWindow: cfg.Security.SessionRenewWindow,
		},
	})

	auditLogger := pkglogger.NewAuditLogger(logger)
	hub := notify.NewHub(tokenManager, sec, cfg.Server.AllowedOrigins, logger)

	authService := services.NewAuthService(
		userRepo,
		loginAttemptRepo,
		securityEventRepo,
		tokenManager,
		totpManager,
		sec,
		cipher,
		mockEmail,
		hub,
		logger,
		auditLogger,
		cfg.Security.AttemptRetention,
		cfg.Email.BaseURL,
	)
	securityService := services.NewSecurityService(userRepo, loginAttemptRepo, securityEventRepo, sec, logger)
	mfaService := services.NewMFAService(userRepo, securityEventRepo, totpManager, cipher, hub, logger, auditLogger)

	ipConfig := &pkghttp.IPConfig{
		TrustedProxies: cfg.Server.TrustedProxies,
	}
	cookieConfig := auth.CookieConfig{
		SameSite: cfg.Auth.CookieSameSite,
	}
	authHandler := handlers.NewAuthHandler(authService, sec.CSRF, ipConfig, cookieConfig)
	securityHandler := handlers.NewSecurityHandler(securityService)
	mfaHandler := handlers.NewMFAHandler(mfaService, ipConfig)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, securityHandler, mfaHandler, hub, tokenManager, sec, logger)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		Pool:         db,
		EmailService: mockEmail,
		Config:       cfg,
		Security:     sec,
		TokenManager: tokenManager,
		Hub:          hub,
		logger:       logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// RequestWithSession makes an authenticated state-changing request carrying
// both the bearer token and the session's CSRF token
func (ts *TestServer) RequestWithSession(method, path, accessToken, csrfToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
		"X-CSRF-Token":  csrfToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractTokensFromResponse extracts tokens from an auth response
func ExtractTokensFromResponse(resp *http.Response) (accessToken, refreshToken, csrfToken string, err error) {
	defer resp.Body.Close()

	var authResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", "", "", fmt.Errorf("failed to parse response: %w", err)
	}

	if access, ok := authResp["access_token"].(string); ok {
		accessToken = access
	}
	if refresh, ok := authResp["refresh_token"].(string); ok {
		refreshToken = refresh
	}
	if csrf, ok := authResp["csrf_token"].(string); ok {
		csrfToken = csrf
	}

	return
}

// GetErrorCode extracts the machine-readable error code from an error response
func GetErrorCode(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if code, ok := errResp["error"].(string); ok {
		return code, nil
	}
	return "", nil
}
