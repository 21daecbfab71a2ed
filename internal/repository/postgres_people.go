package repository

import (
	"context"
	"database/sql"
	"fmt"

	"premier-care-hub/internal/domain"
)

// PostgresCaregiversRepository 护理员参考数据Repository实现
type PostgresCaregiversRepository struct {
	db *sql.DB
}

// NewPostgresCaregiversRepository 创建护理员Repository
func NewPostgresCaregiversRepository(db *sql.DB) *PostgresCaregiversRepository {
	return &PostgresCaregiversRepository{db: db}
}

// 确保实现了接口
var _ CaregiversRepository = (*PostgresCaregiversRepository)(nil)

// UpsertCaregiver 同步护理员（外部人事系统推送）
func (r *PostgresCaregiversRepository) UpsertCaregiver(ctx context.Context, tenantID string, caregiver *domain.Caregiver) error {
	if caregiver == nil {
		return fmt.Errorf("caregiver is required")
	}

	query := `
		INSERT INTO caregivers (caregiver_id, tenant_id, caregiver_name, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, caregiver_id)
		DO UPDATE SET caregiver_name = EXCLUDED.caregiver_name, phone = EXCLUDED.phone
	`

	_, err := r.db.ExecContext(ctx, query,
		caregiver.CaregiverID, tenantID, caregiver.CaregiverName, caregiver.Phone)
	if err != nil {
		return fmt.Errorf("failed to upsert caregiver: %w", err)
	}
	return nil
}

// GetCaregiver 获取单个护理员
func (r *PostgresCaregiversRepository) GetCaregiver(ctx context.Context, tenantID, caregiverID string) (*domain.Caregiver, error) {
	query := `
		SELECT caregiver_id, tenant_id, caregiver_name, COALESCE(phone, '') as phone
		FROM caregivers
		WHERE tenant_id = $1 AND caregiver_id = $2
	`

	var c domain.Caregiver
	err := r.db.QueryRowContext(ctx, query, tenantID, caregiverID).Scan(
		&c.CaregiverID, &c.TenantID, &c.CaregiverName, &c.Phone)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCaregiverNotFound
		}
		return nil, fmt.Errorf("failed to get caregiver: %w", err)
	}
	return &c, nil
}

// ListCaregivers 查询全部护理员
func (r *PostgresCaregiversRepository) ListCaregivers(ctx context.Context, tenantID string) ([]*domain.Caregiver, error) {
	query := `
		SELECT caregiver_id, tenant_id, caregiver_name, COALESCE(phone, '') as phone
		FROM caregivers
		WHERE tenant_id = $1
		ORDER BY caregiver_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list caregivers: %w", err)
	}
	defer rows.Close()

	caregivers := []*domain.Caregiver{}
	for rows.Next() {
		var c domain.Caregiver
		if err := rows.Scan(&c.CaregiverID, &c.TenantID, &c.CaregiverName, &c.Phone); err != nil {
			return nil, fmt.Errorf("failed to scan caregiver: %w", err)
		}
		caregivers = append(caregivers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate caregivers: %w", err)
	}
	return caregivers, nil
}

// PostgresPatientsRepository 患者参考数据Repository实现
type PostgresPatientsRepository struct {
	db *sql.DB
}

// NewPostgresPatientsRepository 创建患者Repository
func NewPostgresPatientsRepository(db *sql.DB) *PostgresPatientsRepository {
	return &PostgresPatientsRepository{db: db}
}

// 确保实现了接口
var _ PatientsRepository = (*PostgresPatientsRepository)(nil)

// UpsertPatient 同步患者（外部系统推送）
// reachable 不参与更新：可达性只由外呼回执维护
func (r *PostgresPatientsRepository) UpsertPatient(ctx context.Context, tenantID string, patient *domain.Patient) error {
	if patient == nil {
		return fmt.Errorf("patient is required")
	}

	query := `
		INSERT INTO patients (patient_id, tenant_id, patient_name, phone, reachable)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, patient_id)
		DO UPDATE SET patient_name = EXCLUDED.patient_name, phone = EXCLUDED.phone
	`

	_, err := r.db.ExecContext(ctx, query,
		patient.PatientID, tenantID, patient.PatientName, patient.Phone, patient.Reachable)
	if err != nil {
		return fmt.Errorf("failed to upsert patient: %w", err)
	}
	return nil
}

// GetPatient 获取单个患者
func (r *PostgresPatientsRepository) GetPatient(ctx context.Context, tenantID, patientID string) (*domain.Patient, error) {
	query := `
		SELECT patient_id, tenant_id, patient_name, COALESCE(phone, '') as phone, reachable
		FROM patients
		WHERE tenant_id = $1 AND patient_id = $2
	`

	var p domain.Patient
	err := r.db.QueryRowContext(ctx, query, tenantID, patientID).Scan(
		&p.PatientID, &p.TenantID, &p.PatientName, &p.Phone, &p.Reachable)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPatientNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &p, nil
}

// SetPatientReachable 更新患者可达性（外呼回执 last-known-value）
func (r *PostgresPatientsRepository) SetPatientReachable(ctx context.Context, tenantID, patientID string, reachable bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE patients SET reachable = $3 WHERE tenant_id = $1 AND patient_id = $2
	`, tenantID, patientID, reachable)
	if err != nil {
		return fmt.Errorf("failed to update patient reachability: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check reachability update: %w", err)
	}
	if rows == 0 {
		return domain.ErrPatientNotFound
	}
	return nil
}
