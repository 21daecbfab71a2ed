package repository

import (
	"context"
	"time"

	"premier-care-hub/internal/domain"
)

// OutreachRepository 外呼尝试Repository接口
// 只增不改：同渠道重试追加新记录，不做去重
type OutreachRepository interface {
	// 追加外呼尝试
	AppendAttempt(ctx context.Context, tenantID string, attempt *domain.OutreachAttempt) error

	// 查询某违规的全部外呼尝试（sent_at 升序，审计用）
	ListAttemptsByViolation(ctx context.Context, tenantID, violationID string) ([]*domain.OutreachAttempt, error)

	// 每渠道最近一次尝试（看板展示口径：last-write-wins）
	LatestPerChannel(ctx context.Context, tenantID, violationID string) (map[string]*domain.OutreachAttempt, error)

	// 按渠道统计时间段内的外呼次数（KPI 卡片：SMS reminders / Voice calls）
	CountByChannel(ctx context.Context, tenantID string, from, to time.Time) (smsCount, voiceCount int, err error)
}
