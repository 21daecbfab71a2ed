package repository

import (
	"context"
	"time"

	"premier-care-hub/internal/domain"
)

// VisitsRepository 访视台账Repository接口
// 注意：台账只增不改——排班创建一次，打卡字段只允许从 NULL 置为非 NULL，
// 日终结（CloseDay）后该天的访视不再接受任何打卡写入
type VisitsRepository interface {
	// 创建访视（外部排班系统通过 recordSchedule 写入）
	CreateVisit(ctx context.Context, tenantID string, visit *domain.Visit) error

	// 获取单个访视
	GetVisit(ctx context.Context, tenantID, visitID string) (*domain.Visit, error)

	// 记录上班打卡（仅当 actual_clock_in IS NULL 时生效，返回是否写入）
	SetClockIn(ctx context.Context, tenantID, visitID string, ts time.Time) (bool, error)

	// 记录下班打卡（仅当 actual_clock_out IS NULL 时生效，返回是否写入）
	SetClockOut(ctx context.Context, tenantID, visitID string, ts time.Time) (bool, error)

	// 按日期查询访视列表
	ListVisitsByDate(ctx context.Context, tenantID, date string) ([]*domain.Visit, error)

	// 按日期区间查询访视列表（from/to 闭区间，"2006-01-02"）
	ListVisitsByDateRange(ctx context.Context, tenantID, from, to string) ([]*domain.Visit, error)

	// 日终结（幂等）：该天访视此后不可变
	CloseDay(ctx context.Context, tenantID, date string) error

	// 查询某天是否已终结
	IsDayClosed(ctx context.Context, tenantID, date string) (bool, error)
}
