package repository

import (
	"context"

	"premier-care-hub/internal/domain"
)

// ViolationsRepository 违规事件Repository接口
// 注意：违规事件的创建不走这里——与 Alert 一一对应、必须在同一事务中写入，
// 由 AlertsRepository.OpenAlert 一并完成；这里只提供读取
type ViolationsRepository interface {
	// 获取单个违规事件
	GetViolation(ctx context.Context, tenantID, violationID string) (*domain.ViolationEvent, error)

	// 查询某访视的全部违规事件
	ListViolationsByVisit(ctx context.Context, tenantID, visitID string) ([]*domain.ViolationEvent, error)

	// 幂等检查：某访视是否已存在某类型的违规事件
	ViolationExists(ctx context.Context, tenantID, visitID, kind string) (bool, error)
}
