package repository

import (
	"context"
	"database/sql"
	"fmt"

	"premier-care-hub/internal/domain"
)

// PostgresViolationsRepository 违规事件Repository实现
// 写入走 PostgresAlertsRepository.OpenAlert 的事务，这里只提供读取
type PostgresViolationsRepository struct {
	db *sql.DB
}

// NewPostgresViolationsRepository 创建违规事件Repository
func NewPostgresViolationsRepository(db *sql.DB) *PostgresViolationsRepository {
	return &PostgresViolationsRepository{db: db}
}

// 确保实现了接口
var _ ViolationsRepository = (*PostgresViolationsRepository)(nil)

// GetViolation 获取单个违规事件
func (r *PostgresViolationsRepository) GetViolation(ctx context.Context, tenantID, violationID string) (*domain.ViolationEvent, error) {
	query := `
		SELECT violation_id, tenant_id, visit_id, kind, detected_at
		FROM violation_events
		WHERE tenant_id = $1 AND violation_id = $2
	`

	var v domain.ViolationEvent
	err := r.db.QueryRowContext(ctx, query, tenantID, violationID).Scan(
		&v.ViolationID,
		&v.TenantID,
		&v.VisitID,
		&v.Kind,
		&v.DetectedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrViolationNotFound
		}
		return nil, fmt.Errorf("failed to get violation: %w", err)
	}
	return &v, nil
}

// ListViolationsByVisit 查询某访视的全部违规事件（detected_at 升序）
func (r *PostgresViolationsRepository) ListViolationsByVisit(ctx context.Context, tenantID, visitID string) ([]*domain.ViolationEvent, error) {
	query := `
		SELECT violation_id, tenant_id, visit_id, kind, detected_at
		FROM violation_events
		WHERE tenant_id = $1 AND visit_id = $2
		ORDER BY detected_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer rows.Close()

	violations := []*domain.ViolationEvent{}
	for rows.Next() {
		var v domain.ViolationEvent
		if err := rows.Scan(&v.ViolationID, &v.TenantID, &v.VisitID, &v.Kind, &v.DetectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		violations = append(violations, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate violations: %w", err)
	}
	return violations, nil
}

// ViolationExists 判断某访视是否已记录某类违规（幂等检测用）
func (r *PostgresViolationsRepository) ViolationExists(ctx context.Context, tenantID, visitID, kind string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM violation_events WHERE tenant_id = $1 AND visit_id = $2 AND kind = $3)`,
		tenantID, visitID, kind,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check violation existence: %w", err)
	}
	return exists, nil
}
