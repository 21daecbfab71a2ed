package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"premier-care-hub/internal/domain"
)

// PostgresOutreachRepository 外呼尝试Repository实现
type PostgresOutreachRepository struct {
	db *sql.DB
}

// NewPostgresOutreachRepository 创建外呼Repository
func NewPostgresOutreachRepository(db *sql.DB) *PostgresOutreachRepository {
	return &PostgresOutreachRepository{db: db}
}

// 确保实现了接口
var _ OutreachRepository = (*PostgresOutreachRepository)(nil)

// AppendAttempt 追加外呼尝试（只增不改）
func (r *PostgresOutreachRepository) AppendAttempt(ctx context.Context, tenantID string, attempt *domain.OutreachAttempt) error {
	if attempt == nil {
		return fmt.Errorf("attempt is required")
	}

	query := `
		INSERT INTO outreach_attempts (
			attempt_id, tenant_id, violation_id, channel, sent_at, delivered, patient_reached
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var reached sql.NullBool
	if attempt.PatientReached != nil {
		reached = sql.NullBool{Bool: *attempt.PatientReached, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		attempt.AttemptID,
		tenantID,
		attempt.ViolationID,
		attempt.Channel,
		attempt.SentAt,
		attempt.Delivered,
		reached,
	)
	if err != nil {
		return fmt.Errorf("failed to append outreach attempt: %w", err)
	}
	return nil
}

// ListAttemptsByViolation 查询某违规的全部外呼尝试（sent_at 升序）
func (r *PostgresOutreachRepository) ListAttemptsByViolation(ctx context.Context, tenantID, violationID string) ([]*domain.OutreachAttempt, error) {
	query := `
		SELECT attempt_id, tenant_id, violation_id, channel, sent_at, delivered, patient_reached
		FROM outreach_attempts
		WHERE tenant_id = $1 AND violation_id = $2
		ORDER BY sent_at ASC, attempt_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, violationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outreach attempts: %w", err)
	}
	defer rows.Close()

	attempts := []*domain.OutreachAttempt{}
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outreach attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outreach attempts: %w", err)
	}
	return attempts, nil
}

// LatestPerChannel 每渠道最近一次尝试
func (r *PostgresOutreachRepository) LatestPerChannel(ctx context.Context, tenantID, violationID string) (map[string]*domain.OutreachAttempt, error) {
	query := `
		SELECT DISTINCT ON (channel)
			attempt_id, tenant_id, violation_id, channel, sent_at, delivered, patient_reached
		FROM outreach_attempts
		WHERE tenant_id = $1 AND violation_id = $2
		ORDER BY channel, sent_at DESC, attempt_id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, violationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest attempts: %w", err)
	}
	defer rows.Close()

	latest := map[string]*domain.OutreachAttempt{}
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outreach attempt: %w", err)
		}
		latest[attempt.Channel] = attempt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate latest attempts: %w", err)
	}
	return latest, nil
}

// CountByChannel 统计时间段内各渠道外呼次数（半开区间 [from, to)）
func (r *PostgresOutreachRepository) CountByChannel(ctx context.Context, tenantID string, from, to time.Time) (int, int, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE channel = 'sms') as sms_count,
			COUNT(*) FILTER (WHERE channel = 'voice') as voice_count
		FROM outreach_attempts
		WHERE tenant_id = $1 AND sent_at >= $2 AND sent_at < $3
	`

	var sms, voice int
	err := r.db.QueryRowContext(ctx, query, tenantID, from, to).Scan(&sms, &voice)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count outreach attempts: %w", err)
	}
	return sms, voice, nil
}

func scanAttempt(row rowScanner) (*domain.OutreachAttempt, error) {
	var attempt domain.OutreachAttempt
	var reached sql.NullBool
	err := row.Scan(
		&attempt.AttemptID,
		&attempt.TenantID,
		&attempt.ViolationID,
		&attempt.Channel,
		&attempt.SentAt,
		&attempt.Delivered,
		&reached,
	)
	if err != nil {
		return nil, err
	}
	if reached.Valid {
		b := reached.Bool
		attempt.PatientReached = &b
	}
	return &attempt, nil
}
