package domain

// 聚合范围类型
const (
	ScopeDay  = "day"
	ScopeWeek = "week"
)

// Scope 指标聚合的时间范围
// Kind = day 时 Date 是当天日期；Kind = week 时 Date 是周起始日（均为 "2006-01-02"）
type Scope struct {
	Kind string `json:"kind"`
	Date string `json:"date"`
}

// ComplianceSnapshot 合规快照（派生数据，不落库）
type ComplianceSnapshot struct {
	Scope               Scope   `json:"scope"`
	ScheduledVisits     int     `json:"scheduled_visits"`
	CompletedVisits     int     `json:"completed_visits"`
	ClockInSuccessRate  float64 `json:"clock_in_success_rate"`
	ClockOutSuccessRate float64 `json:"clock_out_success_rate"`
	EVVCompliance       float64 `json:"evv_compliance"`
	SMSCount            int     `json:"sms_count"`
	VoiceCount          int     `json:"voice_count"`
}

// CaregiverRanking 护理员周排名（派生数据）
// 按 overall_compliance 降序，并列时按 caregiver_id 升序
type CaregiverRanking struct {
	CaregiverID       string  `json:"caregiver_id"`
	Visits            int     `json:"visits"`
	ClockInRate       float64 `json:"clock_in_rate"`
	ClockOutRate      float64 `json:"clock_out_rate"`
	OverallCompliance float64 `json:"overall_compliance"`
	Rank              int     `json:"rank"`
}

// DailyCompliance 周内单日合规明细（看板日分解图）
type DailyCompliance struct {
	Date          string  `json:"date"`
	Weekday       string  `json:"weekday"`
	Visits        int     `json:"visits"`
	Compliance    float64 `json:"compliance"`
	ClockInRate   float64 `json:"clock_in_rate"`
	ClockOutRate  float64 `json:"clock_out_rate"`
}

// WeeklyTrendPoint 周趋势点（看板周趋势图）
type WeeklyTrendPoint struct {
	WeekStart  string  `json:"week_start"`
	Visits     int     `json:"visits"`
	Compliance float64 `json:"compliance"`
}

// 合规等级（阈值分档统一在 Compliance Aggregator 计算，不在各组件重复）
const (
	BandExcellent      = "excellent"
	BandGood           = "good"
	BandNeedsAttention = "needs_attention"
)
