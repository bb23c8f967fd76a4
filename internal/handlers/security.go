package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/securedbank/sentinel/internal/auth"
	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/internal/services"
	pkghttp "github.com/securedbank/sentinel/pkg/http"
)

// SecurityServiceInterface defines the read-side security surface
type SecurityServiceInterface interface {
	Status(ctx context.Context, userID string) (*services.SecurityStatus, error)
	DeviceLogins(ctx context.Context, userID string) ([]*models.DeviceLogin, error)
	LocationRisk(ctx context.Context, userID string) (*services.LocationRisk, error)
	Events(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error)
}

// SecurityHandler serves the dashboard's security posture endpoints
type SecurityHandler struct {
	service SecurityServiceInterface
}

// NewSecurityHandler creates a new SecurityHandler
func NewSecurityHandler(service SecurityServiceInterface) *SecurityHandler {
	return &SecurityHandler{service: service}
}

// Status returns the caller's security posture summary
func (h *SecurityHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authorization required")
		return
	}

	status, err := h.service.Status(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}

// DeviceLogins returns the caller's recent logins grouped per device
func (h *SecurityHandler) DeviceLogins(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authorization required")
		return
	}

	logins, err := h.service.DeviceLogins(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"devices": logins})
}

// LocationRisk returns the heuristic risk level for recent sign-in locations
func (h *SecurityHandler) LocationRisk(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authorization required")
		return
	}

	risk, err := h.service.LocationRisk(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, risk)
}

// Events returns the caller's security event feed, newest first
func (h *SecurityHandler) Events(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authorization required")
		return
	}

	limit := parseQueryInt(r, "limit", 50)
	offset := parseQueryInt(r, "offset", 0)

	events, err := h.service.Events(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
