package domain

import "time"

// 违规类型
// missed_both 是独立类型（看板上 "Both" 是单独分类），不是两条单项违规的合并
const (
	ViolationMissedClockIn  = "missed_clock_in"
	ViolationMissedClockOut = "missed_clock_out"
	ViolationMissedBoth     = "missed_both"
)

// ViolationEvent 违规事件领域模型（对应 violation_events 表）
// 创建后不可变；UNIQUE(tenant_id, visit_id, kind) 保证检测幂等
type ViolationEvent struct {
	// 主键
	ViolationID string `db:"violation_id"` // UUID, PRIMARY KEY

	// 租户和访视关联
	TenantID string `db:"tenant_id"` // UUID, NOT NULL
	VisitID  string `db:"visit_id"`  // UUID, NOT NULL

	// 违规类型
	Kind string `db:"kind"` // CHECK IN ('missed_clock_in', 'missed_clock_out', 'missed_both')

	// 检测时间
	DetectedAt time.Time `db:"detected_at"` // TIMESTAMPTZ, NOT NULL
}

// MissedTypeLabel 看板展示用的违规类型标签
func MissedTypeLabel(kind string) string {
	switch kind {
	case ViolationMissedClockIn:
		return "Clock-In"
	case ViolationMissedClockOut:
		return "Clock-Out"
	case ViolationMissedBoth:
		return "Both"
	default:
		return "Unknown"
	}
}
