package models

import (
	"time"
)

type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Name              string
	Role              string // "analyst", "admin"
	Status            string // "active", "suspended", "disabled"
	MFAEnabled        bool
	MFASecret         string     // TOTP secret, empty unless MFAEnabled
	LockedUntil       *time.Time // Temporary account lock expiration
	PasswordChangedAt *time.Time // Used to invalidate tokens issued before a change
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
