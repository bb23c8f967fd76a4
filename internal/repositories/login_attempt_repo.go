package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/securedbank/sentinel/internal/database"
	"github.com/securedbank/sentinel/internal/models"
)

// LoginAttemptRepository handles database operations for login attempts
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// RecordAttempt records a login attempt in the database
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (email, ip_address, user_agent, success, failure_reason, device_fingerprint, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.Email,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Success,
		attempt.FailureReason,
		attempt.DeviceFingerprint,
		attempt.ExpiresAt,
	)

	return err
}

// GetFailedAttemptCount returns the number of failed attempts for an email within a time window
func (r *LoginAttemptRepository) GetFailedAttemptCount(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND success = false AND attempt_time >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, email, since).Scan(&count)
	return count, err
}

// GetFailedAttemptCountByIP returns the number of failed attempts from an IP within a time window
func (r *LoginAttemptRepository) GetFailedAttemptCountByIP(ctx context.Context, ipAddress string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE ip_address = $1 AND success = false AND attempt_time >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, ipAddress, since).Scan(&count)
	return count, err
}

// GetLastSuccessTime returns the timestamp of the most recent successful login for an email
func (r *LoginAttemptRepository) GetLastSuccessTime(ctx context.Context, email string) (*time.Time, error) {
	query := `
		SELECT attempt_time FROM login_attempts
		WHERE email = $1 AND success = true
		ORDER BY attempt_time DESC
		LIMIT 1
	`

	var successTime time.Time
	err := r.db.Pool.QueryRow(ctx, query, email).Scan(&successTime)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &successTime, nil
}

// GetDeviceLogins aggregates a user's recent attempts per device for the
// device-logins feed.
func (r *LoginAttemptRepository) GetDeviceLogins(ctx context.Context, email string, since time.Time) ([]*models.DeviceLogin, error) {
	query := `
		SELECT device_fingerprint,
		       MAX(ip_address::text),
		       MAX(user_agent),
		       MAX(attempt_time),
		       COUNT(*) FILTER (WHERE success = false),
		       MAX(attempt_time) FILTER (WHERE success = true)
		FROM login_attempts
		WHERE email = $1 AND attempt_time >= $2
		GROUP BY device_fingerprint
		ORDER BY MAX(attempt_time) DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, email, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query device logins: %w", err)
	}
	defer rows.Close()

	logins := make([]*models.DeviceLogin, 0)
	for rows.Next() {
		var login models.DeviceLogin
		var ip, userAgent *string
		if err := rows.Scan(
			&login.DeviceFingerprint, &ip, &userAgent,
			&login.LastSeen, &login.FailedCount, &login.LastSuccess,
		); err != nil {
			return nil, fmt.Errorf("failed to scan device login: %w", err)
		}
		if ip != nil {
			login.IPAddress = *ip
		}
		if userAgent != nil {
			login.UserAgent = *userAgent
		}
		logins = append(logins, &login)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return logins, nil
}

// HasSuccessfulLogin reports whether the email has ever logged in
// successfully from the given device. Used for new-device detection.
func (r *LoginAttemptRepository) HasSuccessfulLogin(ctx context.Context, email, fingerprint string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM login_attempts
			WHERE email = $1 AND device_fingerprint = $2 AND success = true
		)
	`

	var exists bool
	err := r.db.Pool.QueryRow(ctx, query, email, fingerprint).Scan(&exists)
	return exists, err
}

// GetDistinctIPCount returns how many distinct addresses attempted the
// email within the window. Feeds the location risk heuristic.
func (r *LoginAttemptRepository) GetDistinctIPCount(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(DISTINCT ip_address) FROM login_attempts
		WHERE email = $1 AND attempt_time >= $2
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, email, since).Scan(&count)
	return count, err
}

// DeleteExpiredAttempts removes attempts past their retention window,
// returning how many rows were dropped.
func (r *LoginAttemptRepository) DeleteExpiredAttempts(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM login_attempts WHERE expires_at <= CURRENT_TIMESTAMP OR attempt_time < $1`

	result, err := r.db.Pool.Exec(ctx, query, time.Now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
