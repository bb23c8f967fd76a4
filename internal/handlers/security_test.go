package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/securedbank/sentinel/internal/handlers"
	"github.com/securedbank/sentinel/internal/models"
	"github.com/securedbank/sentinel/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestSecurityStatus_Success(t *testing.T) {
	mockSec := &handlers.MockSecurityService{
		StatusFunc: func(ctx context.Context, userID string) (*services.SecurityStatus, error) {
			return &services.SecurityStatus{
				SecurityScore:  85,
				ActiveSessions: 2,
				MFAEnabled:     true,
				GeneratedAt:    time.Now(),
			}, nil
		},
	}

	handler := handlers.NewSecurityHandler(mockSec)
	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "GET", "/api/security/status", nil), "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.Status(w, req)

	var resp services.SecurityStatus
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, 85, resp.SecurityScore)
	assert.Equal(t, 2, resp.ActiveSessions)
	assert.True(t, resp.MFAEnabled)
}

func TestSecurityStatus_RequiresAuth(t *testing.T) {
	handler := handlers.NewSecurityHandler(&handlers.MockSecurityService{})
	req := handlers.NewTestRequest(t, "GET", "/api/security/status", nil)

	w := httptest.NewRecorder()
	handler.Status(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestDeviceLogins_Success(t *testing.T) {
	lastSeen := time.Now().Add(-time.Hour)
	mockSec := &handlers.MockSecurityService{
		DeviceLoginsFunc: func(ctx context.Context, userID string) ([]*models.DeviceLogin, error) {
			return []*models.DeviceLogin{
				{DeviceFingerprint: "fp-laptop", IPAddress: "203.0.113.10", LastSeen: lastSeen},
			}, nil
		},
	}

	handler := handlers.NewSecurityHandler(mockSec)
	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "GET", "/api/security/device-logins", nil), "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.DeviceLogins(w, req)

	var resp struct {
		Devices []*models.DeviceLogin `json:"devices"`
	}
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Len(t, resp.Devices, 1)
	assert.Equal(t, "fp-laptop", resp.Devices[0].DeviceFingerprint)
}

func TestLocationRisk_Success(t *testing.T) {
	mockSec := &handlers.MockSecurityService{
		LocationRiskFunc: func(ctx context.Context, userID string) (*services.LocationRisk, error) {
			return &services.LocationRisk{Level: "medium", DistinctIPs: 3}, nil
		},
	}

	handler := handlers.NewSecurityHandler(mockSec)
	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "GET", "/api/security/location-risk", nil), "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.LocationRisk(w, req)

	var resp services.LocationRisk
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "medium", resp.Level)
	assert.Equal(t, 3, resp.DistinctIPs)
}

func TestEvents_PassesPagination(t *testing.T) {
	var gotLimit, gotOffset int
	mockSec := &handlers.MockSecurityService{
		EventsFunc: func(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error) {
			gotLimit, gotOffset = limit, offset
			return []*models.SecurityEvent{}, nil
		},
	}

	handler := handlers.NewSecurityHandler(mockSec)
	req := handlers.WithAuthContext(handlers.NewTestRequest(t, "GET", "/api/security/events?limit=20&offset=40", nil), "user123", "user@example.com")

	w := httptest.NewRecorder()
	handler.Events(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 40, gotOffset)
}
