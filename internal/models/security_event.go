package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Severity levels for security events. Each level carries a weight that is
// subtracted from a user's security score when the event is recorded.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SeverityWeight maps a severity level to its score penalty.
func SeverityWeight(severity string) int {
	switch severity {
	case SeverityLow:
		return 5
	case SeverityMedium:
		return 10
	case SeverityHigh:
		return 20
	case SeverityCritical:
		return 30
	default:
		return 0
	}
}

// Event types for security events
const (
	SecurityEventLoginFailed      = "login_failed"
	SecurityEventLoginSuccess     = "login_success"
	SecurityEventLockout          = "lockout"
	SecurityEventSessionHijack    = "session_hijack"
	SecurityEventCSRFRejected     = "csrf_rejected"
	SecurityEventForcedLogout     = "forced_logout"
	SecurityEventPasswordReset    = "password_reset"
	SecurityEventMFAEnrolled      = "mfa_enrolled"
	SecurityEventMFADisabled      = "mfa_disabled"
	SecurityEventSuspiciousOrigin = "suspicious_origin"
)

type SecurityEvent struct {
	ID          string        `db:"id"`
	EventType   string        `db:"event_type"`
	Severity    string        `db:"severity"`
	UserID      *string       `db:"user_id"`
	IPAddress   *string       `db:"ip_address"`
	UserAgent   *string       `db:"user_agent"`
	Fingerprint *string       `db:"fingerprint"`
	Message     string        `db:"message"`
	Metadata    EventMetadata `db:"metadata"`
	CreatedAt   time.Time     `db:"created_at"`
}

// EventMetadata holds additional context for security events
type EventMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (em *EventMetadata) Scan(value interface{}) error {
	if value == nil {
		*em = make(EventMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*em = EventMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (em EventMetadata) Value() (driver.Value, error) {
	if em == nil {
		return nil, nil
	}
	return json.Marshal(em)
}
