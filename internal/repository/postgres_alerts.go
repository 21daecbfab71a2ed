package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"premier-care-hub/internal/domain"
)

// PostgresAlertsRepository 告警Repository实现
// OpenAlert 在同一事务中写入违规事件与告警；Resolve/Revert 用条件更新保证
// 并发操作同一告警时恰好一个成功
type PostgresAlertsRepository struct {
	db *sql.DB
}

// NewPostgresAlertsRepository 创建告警Repository
func NewPostgresAlertsRepository(db *sql.DB) *PostgresAlertsRepository {
	return &PostgresAlertsRepository{db: db}
}

// 确保实现了接口
var _ AlertsRepository = (*PostgresAlertsRepository)(nil)

const alertColumns = `
	alert_id,
	tenant_id,
	violation_id,
	alert_status,
	is_new,
	resolved_at,
	created_at,
	updated_at
`

// OpenAlert 同一事务写入违规事件与告警
// violation_events 上的 UNIQUE(tenant_id, visit_id, kind) 兜底幂等：
// 并发检测同一违规时只有一个事务提交成功
func (r *PostgresAlertsRepository) OpenAlert(ctx context.Context, tenantID string, violation *domain.ViolationEvent, alert *domain.Alert) error {
	if violation == nil || alert == nil {
		return fmt.Errorf("violation and alert are required")
	}
	if alert.ViolationID != violation.ViolationID {
		return fmt.Errorf("alert does not reference the violation: alert_violation_id=%s violation_id=%s",
			alert.ViolationID, violation.ViolationID)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO violation_events (violation_id, tenant_id, visit_id, kind, detected_at)
		VALUES ($1, $2, $3, $4, $5)
	`, violation.ViolationID, tenantID, violation.VisitID, violation.Kind, violation.DetectedAt)
	if err != nil {
		return fmt.Errorf("failed to insert violation: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO alerts (alert_id, tenant_id, violation_id, alert_status, is_new, resolved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULL, NOW(), NOW())
	`, alert.AlertID, tenantID, alert.ViolationID, alert.AlertStatus, alert.IsNew)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit open alert: %w", err)
	}
	return nil
}

// GetAlert 获取单个告警
func (r *PostgresAlertsRepository) GetAlert(ctx context.Context, tenantID, alertID string) (*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE tenant_id = $1 AND alert_id = $2`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, tenantID, alertID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// GetAlertByViolation 按违规ID获取告警
func (r *PostgresAlertsRepository) GetAlertByViolation(ctx context.Context, tenantID, violationID string) (*domain.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE tenant_id = $1 AND violation_id = $2`

	alert, err := scanAlert(r.db.QueryRowContext(ctx, query, tenantID, violationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert by violation: %w", err)
	}
	return alert, nil
}

// ListAlertsByStatus 按状态查询告警列表
func (r *PostgresAlertsRepository) ListAlertsByStatus(ctx context.Context, tenantID, status string) ([]*domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE tenant_id = $1 AND alert_status = $2
		ORDER BY created_at ASC, alert_id ASC
	`
	return r.queryAlerts(ctx, query, tenantID, status)
}

// ListResolvedOn 查询某天处理完结的告警
func (r *PostgresAlertsRepository) ListResolvedOn(ctx context.Context, tenantID, date string) ([]*domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE tenant_id = $1 AND alert_status = 'resolved' AND resolved_at::date = $2::date
		ORDER BY created_at ASC, alert_id ASC
	`
	return r.queryAlerts(ctx, query, tenantID, date)
}

func (r *PostgresAlertsRepository) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]*domain.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*domain.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

// ResolveAlert open → resolved，追加 resolve 动作
func (r *PostgresAlertsRepository) ResolveAlert(ctx context.Context, tenantID, alertID string, now time.Time) (bool, error) {
	return r.transition(ctx, tenantID, alertID, domain.AlertActionResolve, now, `
		UPDATE alerts
		SET alert_status = 'resolved', resolved_at = $3, is_new = FALSE, updated_at = $3
		WHERE tenant_id = $1 AND alert_id = $2 AND alert_status = 'open'
	`)
}

// RevertAlert resolved → open，清空 resolved_at，追加 revert 动作
func (r *PostgresAlertsRepository) RevertAlert(ctx context.Context, tenantID, alertID string, now time.Time) (bool, error) {
	return r.transition(ctx, tenantID, alertID, domain.AlertActionRevert, now, `
		UPDATE alerts
		SET alert_status = 'open', resolved_at = NULL, updated_at = $3
		WHERE tenant_id = $1 AND alert_id = $2 AND alert_status = 'resolved'
	`)
}

// transition 条件更新 + 动作记录在同一事务中完成
// 更新零行时区分"告警不存在"与"状态不匹配"
func (r *PostgresAlertsRepository) transition(ctx context.Context, tenantID, alertID, action string, now time.Time, updateQuery string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, updateQuery, tenantID, alertID, now)
	if err != nil {
		return false, fmt.Errorf("failed to update alert status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check alert update: %w", err)
	}
	if rows == 0 {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM alerts WHERE tenant_id = $1 AND alert_id = $2)`,
			tenantID, alertID,
		).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("failed to check alert existence: %w", err)
		}
		if !exists {
			return false, domain.ErrAlertNotFound
		}
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO alert_actions (action_id, tenant_id, alert_id, action, acted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), tenantID, alertID, action, now)
	if err != nil {
		return false, fmt.Errorf("failed to record alert action: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit alert transition: %w", err)
	}
	return true, nil
}

// MarkSeen 标记已读
func (r *PostgresAlertsRepository) MarkSeen(ctx context.Context, tenantID, alertID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE alerts
		SET is_new = FALSE, updated_at = NOW()
		WHERE tenant_id = $1 AND alert_id = $2
	`, tenantID, alertID)
	if err != nil {
		return fmt.Errorf("failed to mark alert seen: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check mark seen result: %w", err)
	}
	if rows == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

// ListActions 查询处理历史
func (r *PostgresAlertsRepository) ListActions(ctx context.Context, tenantID, alertID string) ([]*domain.AlertAction, error) {
	query := `
		SELECT action_id, tenant_id, alert_id, action, acted_at
		FROM alert_actions
		WHERE tenant_id = $1 AND alert_id = $2
		ORDER BY acted_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert actions: %w", err)
	}
	defer rows.Close()

	actions := []*domain.AlertAction{}
	for rows.Next() {
		var a domain.AlertAction
		if err := rows.Scan(&a.ActionID, &a.TenantID, &a.AlertID, &a.Action, &a.ActedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert action: %w", err)
		}
		actions = append(actions, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert actions: %w", err)
	}
	return actions, nil
}

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var alert domain.Alert
	var resolvedAt sql.NullTime
	err := row.Scan(
		&alert.AlertID,
		&alert.TenantID,
		&alert.ViolationID,
		&alert.AlertStatus,
		&alert.IsNew,
		&resolvedAt,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		alert.ResolvedAt = &t
	}
	return &alert, nil
}
