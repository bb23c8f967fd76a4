package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	sentinelauth "github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/internal/services"
	pkghttp "github.com/securedbank/sentinel/pkg/http"
)

// MFAServiceInterface defines the TOTP enrollment surface
type MFAServiceInterface interface {
	InitiateSetup(ctx context.Context, userID string) (*sentinelauth.Enrollment, error)
	ConfirmSetup(ctx context.Context, userID, code string, meta services.RequestMeta) error
	Disable(ctx context.Context, userID, code string, meta services.RequestMeta) error
}

// MFAHandler handles TOTP enrollment requests
type MFAHandler struct {
	service  MFAServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewMFAHandler creates a new MFAHandler
func NewMFAHandler(service MFAServiceInterface, ipConfig *pkghttp.IPConfig) *MFAHandler {
	return &MFAHandler{service: service, ipConfig: ipConfig}
}

// MFACodeRequest carries a six-digit TOTP code
type MFACodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

func (h *MFAHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// Setup starts TOTP enrollment and returns the provisioning QR code
func (h *MFAHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims := sentinelauth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authorization required")
		return
	}

	enrollment, err := h.service.InitiateSetup(r.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "MFA is already enabled")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, enrollment)
}

// Confirm verifies a code from the authenticator and enables MFA
func (h *MFAHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims := sentinelauth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authorization required")
		return
	}

	var req MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ConfirmSetup(r.Context(), claims.UserID, req.Code, h.requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, models.ErrMFACodeInvalid):
			pkghttp.WriteBadRequest(w, "Invalid verification code")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "No pending MFA setup")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "MFA is already enabled")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "MFA enabled"})
}

// Disable turns off MFA after verifying a current code
func (h *MFAHandler) Disable(w http.ResponseWriter, r *http.Request) {
	claims := sentinelauth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authorization required")
		return
	}

	var req MFACodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Disable(r.Context(), claims.UserID, req.Code, h.requestMeta(r)); err != nil {
		switch {
		case errors.Is(err, models.ErrMFACodeInvalid):
			pkghttp.WriteBadRequest(w, "Invalid verification code")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "MFA is not enabled")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "MFA disabled"})
}
