package models

import "time"

// LoginAttempt represents a single login attempt in the system
type LoginAttempt struct {
	ID                string    `db:"id"`
	Email             string    `db:"email"`
	IPAddress         string    `db:"ip_address"`
	UserAgent         string    `db:"user_agent"`
	AttemptTime       time.Time `db:"attempt_time"`
	Success           bool      `db:"success"`
	FailureReason     *string   `db:"failure_reason"`
	DeviceFingerprint string    `db:"device_fingerprint"`
	ExpiresAt         time.Time `db:"expires_at"`
}

// DeviceLogin aggregates login attempts per device for the dashboard feed.
type DeviceLogin struct {
	DeviceFingerprint string     `json:"device_fingerprint"`
	IPAddress         string     `json:"ip_address"`
	UserAgent         string     `json:"user_agent"`
	LastSeen          time.Time  `json:"last_seen"`
	FailedCount       int        `json:"failed_count"`
	LastSuccess       *time.Time `json:"last_success,omitempty"`
}
