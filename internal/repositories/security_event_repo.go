package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/securedbank/sentinel/internal/database"
	"github.com/securedbank/sentinel/internal/models"
)

// SecurityEventRepository handles security event data access
type SecurityEventRepository struct {
	pool *pgxpool.Pool
}

// NewSecurityEventRepository creates a new SecurityEventRepository
func NewSecurityEventRepository(db *database.DB) *SecurityEventRepository {
	return &SecurityEventRepository{pool: db.Pool}
}

// scanSecurityEventRow populates a SecurityEvent model from a database row
func scanSecurityEventRow(row rowScanner) (*models.SecurityEvent, error) {
	var event models.SecurityEvent

	err := row.Scan(
		&event.ID, &event.EventType, &event.Severity, &event.UserID,
		&event.IPAddress, &event.UserAgent, &event.Fingerprint,
		&event.Message, &event.Metadata, &event.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &event, nil
}

// scanSecurityEventRows iterates through rows and scans each into SecurityEvent models
func scanSecurityEventRows(rows pgx.Rows) ([]*models.SecurityEvent, error) {
	defer rows.Close()

	events := make([]*models.SecurityEvent, 0)

	for rows.Next() {
		event, err := scanSecurityEventRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating security event rows: %w", err)
	}

	return events, nil
}

const securityEventColumns = `id, event_type, severity, user_id, ip_address, user_agent, fingerprint, message, metadata, created_at`

// Create records a new security event
func (r *SecurityEventRepository) Create(ctx context.Context, event *models.SecurityEvent) (*models.SecurityEvent, error) {
	query := `
		INSERT INTO security_events (
			event_type, severity, user_id, ip_address, user_agent, fingerprint, message, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + securityEventColumns

	result, err := scanSecurityEventRow(r.pool.QueryRow(
		ctx, query,
		event.EventType, event.Severity, event.UserID, event.IPAddress,
		event.UserAgent, event.Fingerprint, event.Message, event.Metadata,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create security event: %w", err)
	}

	return result, nil
}

// GetByUserID retrieves events affecting a specific user, newest first
func (r *SecurityEventRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SecurityEvent, error) {
	query := `
		SELECT ` + securityEventColumns + `
		FROM security_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return scanSecurityEventRows(rows)
}

// GetBySeverity retrieves events at or above a severity level
func (r *SecurityEventRepository) GetBySeverity(ctx context.Context, severities []string, limit, offset int) ([]*models.SecurityEvent, error) {
	query := `
		SELECT ` + securityEventColumns + `
		FROM security_events
		WHERE severity = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, severities, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query security events: %w", err)
	}

	return scanSecurityEventRows(rows)
}

// SumSeverityWeights totals the score penalty for a user's events within
// the window. The security score is 100 minus this sum, floored at zero.
func (r *SecurityEventRepository) SumSeverityWeights(ctx context.Context, userID string, since time.Time) (int, error) {
	query := `
		SELECT COALESCE(SUM(
			CASE severity
				WHEN 'low' THEN 5
				WHEN 'medium' THEN 10
				WHEN 'high' THEN 20
				WHEN 'critical' THEN 30
				ELSE 0
			END
		), 0)
		FROM security_events
		WHERE user_id = $1 AND created_at >= $2
	`

	var total int
	err := r.pool.QueryRow(ctx, query, userID, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum severity weights: %w", err)
	}

	return total, nil
}

// Cleanup removes events older than the specified number of days
func (r *SecurityEventRepository) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	query := `
		DELETE FROM security_events
		WHERE created_at < CURRENT_TIMESTAMP - INTERVAL '1 day' * $1
	`

	result, err := r.pool.Exec(ctx, query, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup security events: %w", err)
	}

	return result.RowsAffected(), nil
}
