package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"premier-care-hub/internal/domain"
)

// PostgresVisitsRepository 访视台账Repository实现
type PostgresVisitsRepository struct {
	db *sql.DB
}

// NewPostgresVisitsRepository 创建访视Repository
func NewPostgresVisitsRepository(db *sql.DB) *PostgresVisitsRepository {
	return &PostgresVisitsRepository{db: db}
}

// 确保实现了接口
var _ VisitsRepository = (*PostgresVisitsRepository)(nil)

const visitColumns = `
	visit_id,
	tenant_id,
	caregiver_id,
	patient_id,
	to_char(visit_date, 'YYYY-MM-DD') as visit_date,
	scheduled_start,
	scheduled_end,
	actual_clock_in,
	actual_clock_out,
	created_at,
	updated_at
`

// CreateVisit 创建排班访视
func (r *PostgresVisitsRepository) CreateVisit(ctx context.Context, tenantID string, visit *domain.Visit) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if visit == nil {
		return fmt.Errorf("visit is required")
	}

	query := `
		INSERT INTO visits (
			visit_id, tenant_id, caregiver_id, patient_id,
			visit_date, scheduled_start, scheduled_end,
			actual_clock_in, actual_clock_out,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, NOW(), NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		visit.VisitID,
		tenantID,
		visit.CaregiverID,
		visit.PatientID,
		visit.VisitDate,
		visit.ScheduledStart,
		visit.ScheduledEnd,
		visit.ActualClockIn,
		visit.ActualClockOut,
	)
	if err != nil {
		return fmt.Errorf("failed to create visit: %w", err)
	}
	return nil
}

// GetVisit 获取单个访视
func (r *PostgresVisitsRepository) GetVisit(ctx context.Context, tenantID, visitID string) (*domain.Visit, error) {
	query := `SELECT ` + visitColumns + ` FROM visits WHERE tenant_id = $1 AND visit_id = $2`

	visit, err := scanVisit(r.db.QueryRowContext(ctx, query, tenantID, visitID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrVisitNotFound
		}
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	return visit, nil
}

// SetClockIn 记录签到时间，仅当尚未记录时生效
func (r *PostgresVisitsRepository) SetClockIn(ctx context.Context, tenantID, visitID string, ts time.Time) (bool, error) {
	query := `
		UPDATE visits
		SET actual_clock_in = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND visit_id = $2 AND actual_clock_in IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, visitID, ts)
	if err != nil {
		return false, fmt.Errorf("failed to set clock-in: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check clock-in result: %w", err)
	}
	if rows > 0 {
		return true, nil
	}
	return false, r.explainNoUpdate(ctx, tenantID, visitID)
}

// SetClockOut 记录签退时间，仅当尚未记录时生效
func (r *PostgresVisitsRepository) SetClockOut(ctx context.Context, tenantID, visitID string, ts time.Time) (bool, error) {
	query := `
		UPDATE visits
		SET actual_clock_out = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND visit_id = $2 AND actual_clock_out IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, visitID, ts)
	if err != nil {
		return false, fmt.Errorf("failed to set clock-out: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check clock-out result: %w", err)
	}
	if rows > 0 {
		return true, nil
	}
	return false, r.explainNoUpdate(ctx, tenantID, visitID)
}

// explainNoUpdate 区分"访视不存在"与"时间已记录"两种零更新情况
func (r *PostgresVisitsRepository) explainNoUpdate(ctx context.Context, tenantID, visitID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM visits WHERE tenant_id = $1 AND visit_id = $2)`,
		tenantID, visitID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check visit existence: %w", err)
	}
	if !exists {
		return domain.ErrVisitNotFound
	}
	return nil
}

// ListVisitsByDate 查询某天的全部访视
func (r *PostgresVisitsRepository) ListVisitsByDate(ctx context.Context, tenantID, date string) ([]*domain.Visit, error) {
	return r.ListVisitsByDateRange(ctx, tenantID, date, date)
}

// ListVisitsByDateRange 查询日期区间内的访视（含两端）
func (r *PostgresVisitsRepository) ListVisitsByDateRange(ctx context.Context, tenantID, from, to string) ([]*domain.Visit, error) {
	query := `
		SELECT ` + visitColumns + `
		FROM visits
		WHERE tenant_id = $1 AND visit_date >= $2::date AND visit_date <= $3::date
		ORDER BY scheduled_start ASC, visit_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer rows.Close()

	visits := []*domain.Visit{}
	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, visit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate visits: %w", err)
	}
	return visits, nil
}

// CloseDay 封账某个服务日（幂等）
func (r *PostgresVisitsRepository) CloseDay(ctx context.Context, tenantID, date string) error {
	query := `
		INSERT INTO day_closures (tenant_id, closure_date, closed_at)
		VALUES ($1, $2::date, NOW())
		ON CONFLICT (tenant_id, closure_date) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, tenantID, date); err != nil {
		return fmt.Errorf("failed to close day: %w", err)
	}
	return nil
}

// IsDayClosed 查询服务日是否已封账
func (r *PostgresVisitsRepository) IsDayClosed(ctx context.Context, tenantID, date string) (bool, error) {
	var closed bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM day_closures WHERE tenant_id = $1 AND closure_date = $2::date)`,
		tenantID, date,
	).Scan(&closed)
	if err != nil {
		return false, fmt.Errorf("failed to check day closure: %w", err)
	}
	return closed, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVisit(row rowScanner) (*domain.Visit, error) {
	var visit domain.Visit
	var clockIn, clockOut sql.NullTime
	err := row.Scan(
		&visit.VisitID,
		&visit.TenantID,
		&visit.CaregiverID,
		&visit.PatientID,
		&visit.VisitDate,
		&visit.ScheduledStart,
		&visit.ScheduledEnd,
		&clockIn,
		&clockOut,
		&visit.CreatedAt,
		&visit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if clockIn.Valid {
		t := clockIn.Time
		visit.ActualClockIn = &t
	}
	if clockOut.Valid {
		t := clockOut.Time
		visit.ActualClockOut = &t
	}
	return &visit, nil
}
