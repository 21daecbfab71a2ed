package domain

import "errors"

// 引擎错误分类
// 所有错误都是单请求级别的，直接返回给调用方，不会导致进程不可恢复
var (
	// NotFound 类：调用方传入了未知 ID，不重试
	ErrVisitNotFound     = errors.New("visit not found")
	ErrViolationNotFound = errors.New("violation not found")
	ErrAlertNotFound     = errors.New("alert not found")
	ErrCaregiverNotFound = errors.New("caregiver not found")
	ErrPatientNotFound   = errors.New("patient not found")

	// InvalidTransition 类：用户操作与当前状态不符，向 UI 解释后拒绝
	ErrAlreadyResolved = errors.New("alert already resolved")
	ErrNotResolved     = errors.New("alert not resolved")

	// DayClosed：日终结后写入被拒绝，无部分副作用
	ErrDayClosed = errors.New("day closed")

	// ClockConflict：同一打卡字段已存在不同时间戳
	// 注意：完全相同的重放是成功的 no-op（容忍现场设备 at-least-once 投递），不是错误
	ErrClockConflict = errors.New("clock event conflicts with recorded value")
)
