package repository

import (
	"context"
	"time"

	"premier-care-hub/internal/domain"
)

// AlertsRepository 告警Repository接口
// 状态机约束由条件更新实现：并发 resolve 同一告警时恰好一个成功
type AlertsRepository interface {
	// 创建告警（与其 ViolationEvent 在同一事务中写入，保证 1:1 不变量）
	OpenAlert(ctx context.Context, tenantID string, violation *domain.ViolationEvent, alert *domain.Alert) error

	// 获取单个告警
	GetAlert(ctx context.Context, tenantID, alertID string) (*domain.Alert, error)

	// 按违规ID获取告警
	GetAlertByViolation(ctx context.Context, tenantID, violationID string) (*domain.Alert, error)

	// 按状态查询告警列表（created_at 升序）
	ListAlertsByStatus(ctx context.Context, tenantID, status string) ([]*domain.Alert, error)

	// 查询某天处理完结的告警（resolved_at 落在该天，日干预记录）
	ListResolvedOn(ctx context.Context, tenantID, date string) ([]*domain.Alert, error)

	// 处理告警：open → resolved，设置 resolved_at，追加 resolve 动作
	// 返回 false 表示告警存在但状态不是 open（由 Service 映射为 ErrAlreadyResolved）
	ResolveAlert(ctx context.Context, tenantID, alertID string, now time.Time) (bool, error)

	// 回退告警：resolved → open，清空 resolved_at，追加 revert 动作
	// 返回 false 表示告警存在但状态不是 resolved
	RevertAlert(ctx context.Context, tenantID, alertID string, now time.Time) (bool, error)

	// 标记已读：清除 is_new，不改变生命周期状态
	MarkSeen(ctx context.Context, tenantID, alertID string) error

	// 查询处理历史（acted_at 升序）
	ListActions(ctx context.Context, tenantID, alertID string) ([]*domain.AlertAction, error)
}
