package domain

// Caregiver 护理员参考数据（对应 caregivers 表）
// 由外部人事系统拥有，引擎只读缓存（按 caregiver_id 索引）
type Caregiver struct {
	CaregiverID   string `db:"caregiver_id"`   // 外部编号（如 CG001），PRIMARY KEY（与 tenant_id 联合）
	TenantID      string `db:"tenant_id"`      // UUID, NOT NULL
	CaregiverName string `db:"caregiver_name"` // VARCHAR(100), NOT NULL
	Phone         string `db:"phone"`          // VARCHAR(30)
}

// Patient 患者参考数据（对应 patients 表）
// reachable 记录最近一次外呼确认的可达性（last-known-value 语义）
type Patient struct {
	PatientID   string `db:"patient_id"` // 外部编号，PRIMARY KEY（与 tenant_id 联合）
	TenantID    string `db:"tenant_id"`  // UUID, NOT NULL
	PatientName string `db:"patient_name"`
	Phone       string `db:"phone"`
	Reachable   bool   `db:"reachable"` // BOOL, DEFAULT true
}
