package domain

import "time"

// 外呼渠道
const (
	ChannelSMS   = "sms"
	ChannelVoice = "voice"
)

// OutreachAttempt 外呼尝试领域模型（对应 outreach_attempts 表）
// 只增不改，允许同渠道重试；看板展示取每渠道最近一次（历史全量保留供审计）
type OutreachAttempt struct {
	// 主键
	AttemptID string `db:"attempt_id"` // UUID, PRIMARY KEY

	// 租户和违规关联
	TenantID    string `db:"tenant_id"`    // UUID, NOT NULL
	ViolationID string `db:"violation_id"` // UUID, NOT NULL

	// 渠道和结果
	Channel   string    `db:"channel"`  // CHECK IN ('sms', 'voice')
	SentAt    time.Time `db:"sent_at"`  // TIMESTAMPTZ, NOT NULL
	Delivered bool      `db:"delivered"`

	// 患者可达性（三态：nil = 本次未知，不回退已知值）
	PatientReached *bool `db:"patient_reached"`
}
