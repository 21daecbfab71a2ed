package domain

import "time"

// 告警状态
const (
	AlertStatusOpen     = "open"
	AlertStatusResolved = "resolved"
)

// 告警处理动作
const (
	AlertActionResolve = "resolve"
	AlertActionRevert  = "revert"
)

// Alert 告警领域模型（对应 alerts 表）
// 与 ViolationEvent 一一对应（UNIQUE(violation_id)），在同一事务中创建
// 不变量：alert_status = 'resolved' 当且仅当 resolved_at 非空
type Alert struct {
	// 主键
	AlertID string `db:"alert_id"` // UUID, PRIMARY KEY

	// 租户和违规关联
	TenantID    string `db:"tenant_id"`    // UUID, NOT NULL
	ViolationID string `db:"violation_id"` // UUID, NOT NULL, UNIQUE

	// 生命周期状态
	AlertStatus string     `db:"alert_status"` // DEFAULT 'open', CHECK IN ('open', 'resolved')
	IsNew       bool       `db:"is_new"`       // 看板 "New" 徽标（markSeen 后清除）
	ResolvedAt  *time.Time `db:"resolved_at"`  // TIMESTAMPTZ, nullable

	// 时间戳
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AlertAction 告警处理历史（对应 alert_actions 表，只增不改、按时间有序）
type AlertAction struct {
	ActionID string    `db:"action_id"` // UUID, PRIMARY KEY
	TenantID string    `db:"tenant_id"`
	AlertID  string    `db:"alert_id"`
	Action   string    `db:"action"` // CHECK IN ('resolve', 'revert')
	ActedAt  time.Time `db:"acted_at"`
}
