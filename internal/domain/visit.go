package domain

import "time"

// DateLayout 访视日期格式（对应 DATE 列）
const DateLayout = "2006-01-02"

// Visit 访视领域模型（对应 visits 表）
// 由外部排班系统创建，打卡事件追加后只增不改；日终结（day_closures）后不可变
type Visit struct {
	// 主键
	VisitID string `db:"visit_id"` // UUID, PRIMARY KEY

	// 租户和人员关联
	TenantID    string `db:"tenant_id"`    // UUID, NOT NULL
	CaregiverID string `db:"caregiver_id"` // 护理员编号（如 CG001），NOT NULL
	PatientID   string `db:"patient_id"`   // 患者编号，NOT NULL

	// 排班信息
	VisitDate      string    `db:"visit_date"`      // DATE（"2006-01-02"）
	ScheduledStart time.Time `db:"scheduled_start"` // TIMESTAMPTZ, NOT NULL
	ScheduledEnd   time.Time `db:"scheduled_end"`   // TIMESTAMPTZ, NOT NULL

	// 实际打卡（nullable，由现场设备事件填充）
	ActualClockIn  *time.Time `db:"actual_clock_in"`
	ActualClockOut *time.Time `db:"actual_clock_out"`

	// 时间戳
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Completed 访视是否完成（上下班打卡均已记录，按事实口径，与告警处理状态无关）
func (v *Visit) Completed() bool {
	return v.ActualClockIn != nil && v.ActualClockOut != nil
}

// ClockInOnTime 上班打卡是否在容差内
func (v *Visit) ClockInOnTime(tolerance time.Duration) bool {
	return v.ActualClockIn != nil && !v.ActualClockIn.After(v.ScheduledStart.Add(tolerance))
}

// ClockOutOnTime 下班打卡是否在容差内
func (v *Visit) ClockOutOnTime(tolerance time.Duration) bool {
	return v.ActualClockOut != nil && !v.ActualClockOut.After(v.ScheduledEnd.Add(tolerance))
}
