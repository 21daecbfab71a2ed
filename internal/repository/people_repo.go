package repository

import (
	"context"

	"premier-care-hub/internal/domain"
)

// CaregiversRepository 护理员参考数据Repository接口
// 数据归外部人事系统所有，这里是只读缓存 + 同步入口（Upsert）
type CaregiversRepository interface {
	// 同步护理员（外部系统推送）
	UpsertCaregiver(ctx context.Context, tenantID string, caregiver *domain.Caregiver) error

	// 获取单个护理员
	GetCaregiver(ctx context.Context, tenantID, caregiverID string) (*domain.Caregiver, error)

	// 查询全部护理员（caregiver_id 升序）
	ListCaregivers(ctx context.Context, tenantID string) ([]*domain.Caregiver, error)
}

// PatientsRepository 患者参考数据Repository接口
type PatientsRepository interface {
	// 同步患者（外部系统推送）
	UpsertPatient(ctx context.Context, tenantID string, patient *domain.Patient) error

	// 获取单个患者
	GetPatient(ctx context.Context, tenantID, patientID string) (*domain.Patient, error)

	// 更新患者可达性（外呼回执带回的 last-known-value）
	SetPatientReachable(ctx context.Context, tenantID, patientID string, reachable bool) error
}
