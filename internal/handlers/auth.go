package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/internal/services"
	pkghttp "github.com/securedbank/sentinel/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, totpCode string, meta services.RequestMeta) (*services.AuthResponse, error)
	Register(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string, meta services.RequestMeta) (*services.AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
	LogoutAll(ctx context.Context, userID string) error
	ForgotPassword(ctx context.Context, email string, meta services.RequestMeta) error
	ResetPassword(ctx context.Context, token, newPassword string, meta services.RequestMeta) error
}

// CSRFTokenProvider hands out the caller's current CSRF token.
type CSRFTokenProvider interface {
	Ensure(userID string) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	csrf         CSRFTokenProvider
	ipConfig     *pkghttp.IPConfig
	cookieConfig auth.CookieConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, csrf CSRFTokenProvider, ipConfig *pkghttp.IPConfig, cookieConfig auth.CookieConfig) *AuthHandler {
	return &AuthHandler{
		service:      service,
		csrf:         csrf,
		ipConfig:     ipConfig,
		cookieConfig: cookieConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code,omitempty" validate:"omitempty,len=6,numeric"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

// RefreshTokenRequest represents the request body for token refresh.
// The token may also arrive via the refresh_token cookie.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ForgotPasswordRequest represents the request body for a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for completing a reset
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// requestMeta extracts the client attributes that bind a session to a device.
func (h *AuthHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// setAuthCookies writes the refresh token and CSRF cookies that
// accompany a successful login or refresh.
func (h *AuthHandler) setAuthCookies(w http.ResponseWriter, resp *services.AuthResponse) {
	refreshMaxAge := int((7 * 24 * time.Hour).Seconds())
	csrfMaxAge := int((24 * time.Hour).Seconds())
	auth.SetRefreshTokenCookie(w, resp.RefreshToken, refreshMaxAge, h.cookieConfig)
	auth.SetCSRFTokenCookie(w, resp.CSRFToken, csrfMaxAge, h.cookieConfig)
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password, req.TOTPCode, h.requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrMFARequired):
			pkghttp.WriteError(w, http.StatusUnauthorized, "MFA_REQUIRED", "A verification code is required")
		case errors.Is(err, models.ErrMFACodeInvalid):
			pkghttp.WriteUnauthorized(w, "Invalid verification code")
		case errors.Is(err, models.ErrTooManyAttempts):
			pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
		case errors.Is(err, models.ErrUnauthorized),
			errors.Is(err, models.ErrAccountDisabled),
			errors.Is(err, models.ErrAccountSuspended),
			errors.Is(err, models.ErrAccountLocked):
			// Generic message for all account states to prevent user enumeration
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	h.setAuthCookies(w, authResp)
	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	authResp, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name, h.requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		case strings.Contains(err.Error(), "invalid password"),
			strings.Contains(err.Error(), "required"):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	h.setAuthCookies(w, authResp)
	pkghttp.WriteJSON(w, http.StatusCreated, authResp)
}

// RefreshToken handles token refresh. The refresh token is read from
// the httpOnly cookie first, then from the request body.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken, err := auth.GetRefreshTokenCookie(r)
	if err != nil || refreshToken == "" {
		var req RefreshTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}

	if refreshToken == "" {
		pkghttp.WriteUnauthorized(w, "Refresh token required")
		return
	}

	authResp, err := h.service.RefreshToken(r.Context(), refreshToken, h.requestMeta(r))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrSessionInvalid):
			auth.ClearRefreshTokenCookie(w, h.cookieConfig)
			pkghttp.WriteUnauthorized(w, "Session expired")
		case errors.Is(err, models.ErrUnauthorized):
			auth.ClearRefreshTokenCookie(w, h.cookieConfig)
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	h.setAuthCookies(w, authResp)
	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		pkghttp.WriteUnauthorized(w, "Authorization required")
		return
	}
	accessToken := strings.TrimPrefix(authHeader, "Bearer ")

	if err := h.service.Logout(r.Context(), accessToken); err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication failed")
		return
	}

	auth.ClearRefreshTokenCookie(w, h.cookieConfig)
	auth.ClearCSRFTokenCookie(w, h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll terminates every session for the authenticated user
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authorization required")
		return
	}

	if err := h.service.LogoutAll(r.Context(), claims.UserID); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	auth.ClearRefreshTokenCookie(w, h.cookieConfig)
	auth.ClearCSRFTokenCookie(w, h.cookieConfig)
	w.WriteHeader(http.StatusNoContent)
}

// CSRFToken returns the caller's current CSRF token, generating one if
// none is live. The dashboard calls this on boot to rehydrate its
// request interceptors.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authorization required")
		return
	}

	token, err := h.csrf.Ensure(claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	csrfMaxAge := int((24 * time.Hour).Seconds())
	auth.SetCSRFTokenCookie(w, token, csrfMaxAge, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

// ForgotPassword requests a password reset link. The response is
// identical whether or not the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email, h.requestMeta(r)); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If an account exists for that email, a reset link has been sent.",
	})
}

// ResetPassword completes a password reset with a token from the email link
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword, h.requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, models.ErrTokenExpired):
			pkghttp.WriteError(w, http.StatusBadRequest, "TOKEN_EXPIRED", "Reset link is invalid or has expired")
		case errors.Is(err, models.ErrInternalServer):
			pkghttp.WriteInternalError(w, "Internal server error")
		default:
			pkghttp.WriteBadRequest(w, "Invalid password")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated. Please sign in with your new password.",
	})
}
