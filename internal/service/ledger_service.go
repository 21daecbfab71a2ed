package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"

	"go.uber.org/zap"
)

// LedgerService 访视台账服务
// 打卡事件可能从 HTTP 与 MQTT 两条通道同时到达，按访视粒度加锁串行化，
// 保证"先到先记录、重复事件幂等、冲突事件拒绝"的语义
type LedgerService struct {
	visitsRepo repository.VisitsRepository
	logger     *zap.Logger

	mu     sync.Mutex
	visits map[string]*sync.Mutex // tenantID/visitID -> 访视级锁
}

// NewLedgerService 创建访视台账服务
func NewLedgerService(visitsRepo repository.VisitsRepository, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		visitsRepo: visitsRepo,
		logger:     logger,
		visits:     map[string]*sync.Mutex{},
	}
}

// CreateVisitRequest 创建排班访视请求
type CreateVisitRequest struct {
	VisitID        string    `json:"visit_id"`
	CaregiverID    string    `json:"caregiver_id"`
	PatientID      string    `json:"patient_id"`
	VisitDate      string    `json:"visit_date"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
}

// CreateVisit 创建排班访视
func (s *LedgerService) CreateVisit(ctx context.Context, tenantID string, req CreateVisitRequest) (*domain.Visit, error) {
	// 参数验证
	if req.VisitID == "" || req.CaregiverID == "" || req.PatientID == "" {
		return nil, fmt.Errorf("visit_id, caregiver_id and patient_id are required")
	}
	if _, err := time.Parse(domain.DateLayout, req.VisitDate); err != nil {
		return nil, fmt.Errorf("invalid visit_date %q: %w", req.VisitDate, err)
	}
	if !req.ScheduledStart.Before(req.ScheduledEnd) {
		return nil, fmt.Errorf("scheduled_start must be before scheduled_end")
	}

	closed, err := s.visitsRepo.IsDayClosed(ctx, tenantID, req.VisitDate)
	if err != nil {
		return nil, fmt.Errorf("failed to check day closure: %w", err)
	}
	if closed {
		return nil, domain.ErrDayClosed
	}

	visit := &domain.Visit{
		VisitID:        req.VisitID,
		TenantID:       tenantID,
		CaregiverID:    req.CaregiverID,
		PatientID:      req.PatientID,
		VisitDate:      req.VisitDate,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := s.visitsRepo.CreateVisit(ctx, tenantID, visit); err != nil {
		return nil, err
	}

	s.logger.Info("visit created",
		zap.String("tenant_id", tenantID),
		zap.String("visit_id", visit.VisitID),
		zap.String("visit_date", visit.VisitDate))
	return visit, nil
}

// GetVisit 获取单个访视
func (s *LedgerService) GetVisit(ctx context.Context, tenantID, visitID string) (*domain.Visit, error) {
	if visitID == "" {
		return nil, fmt.Errorf("visit_id is required")
	}
	return s.visitsRepo.GetVisit(ctx, tenantID, visitID)
}

// ListVisitsByDate 查询某天的访视
func (s *LedgerService) ListVisitsByDate(ctx context.Context, tenantID, date string) ([]*domain.Visit, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return s.visitsRepo.ListVisitsByDate(ctx, tenantID, date)
}

// ListVisitsByWeek 查询一周（周一起的 7 天）的访视
func (s *LedgerService) ListVisitsByWeek(ctx context.Context, tenantID, weekStart string) ([]*domain.Visit, error) {
	start, err := time.ParseInLocation(domain.DateLayout, weekStart, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid week_start %q: %w", weekStart, err)
	}
	end := start.AddDate(0, 0, 6).Format(domain.DateLayout)
	return s.visitsRepo.ListVisitsByDateRange(ctx, tenantID, weekStart, end)
}

// RecordClockIn 记录签到事件
// 幂等规则：与已记录时间完全一致的重复事件静默忽略；不一致的事件报冲突
func (s *LedgerService) RecordClockIn(ctx context.Context, tenantID, visitID string, ts time.Time) error {
	return s.recordClock(ctx, tenantID, visitID, ts, true)
}

// RecordClockOut 记录签退事件
func (s *LedgerService) RecordClockOut(ctx context.Context, tenantID, visitID string, ts time.Time) error {
	return s.recordClock(ctx, tenantID, visitID, ts, false)
}

func (s *LedgerService) recordClock(ctx context.Context, tenantID, visitID string, ts time.Time, clockIn bool) error {
	if visitID == "" {
		return fmt.Errorf("visit_id is required")
	}
	if ts.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	lock := s.visitLock(tenantID, visitID)
	lock.Lock()
	defer lock.Unlock()

	visit, err := s.visitsRepo.GetVisit(ctx, tenantID, visitID)
	if err != nil {
		return err
	}

	closed, err := s.visitsRepo.IsDayClosed(ctx, tenantID, visit.VisitDate)
	if err != nil {
		return fmt.Errorf("failed to check day closure: %w", err)
	}
	if closed {
		return domain.ErrDayClosed
	}

	recorded := visit.ActualClockIn
	kind := "clock_in"
	if !clockIn {
		recorded = visit.ActualClockOut
		kind = "clock_out"
	}
	if recorded != nil {
		if recorded.Equal(ts) {
			// 重复投递，静默忽略
			return nil
		}
		s.logger.Warn("conflicting clock event rejected",
			zap.String("tenant_id", tenantID),
			zap.String("visit_id", visitID),
			zap.String("kind", kind),
			zap.Time("recorded", *recorded),
			zap.Time("incoming", ts))
		return domain.ErrClockConflict
	}

	var updated bool
	if clockIn {
		updated, err = s.visitsRepo.SetClockIn(ctx, tenantID, visitID, ts)
	} else {
		updated, err = s.visitsRepo.SetClockOut(ctx, tenantID, visitID, ts)
	}
	if err != nil {
		return err
	}
	if !updated {
		// 极端竞态：读取后、写入前被另一条通道抢先，按冲突处理
		return domain.ErrClockConflict
	}

	s.logger.Info("clock event recorded",
		zap.String("tenant_id", tenantID),
		zap.String("visit_id", visitID),
		zap.String("kind", kind),
		zap.Time("timestamp", ts))
	return nil
}

// CloseDay 封账服务日（幂等），之后该日访视不再接受打卡
func (s *LedgerService) CloseDay(ctx context.Context, tenantID, date string) error {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}
	if err := s.visitsRepo.CloseDay(ctx, tenantID, date); err != nil {
		return err
	}
	s.logger.Info("day closed",
		zap.String("tenant_id", tenantID),
		zap.String("date", date))
	return nil
}

// IsDayClosed 查询服务日是否已封账
func (s *LedgerService) IsDayClosed(ctx context.Context, tenantID, date string) (bool, error) {
	return s.visitsRepo.IsDayClosed(ctx, tenantID, date)
}

func (s *LedgerService) visitLock(tenantID, visitID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tenantID + "/" + visitID
	lock, ok := s.visits[key]
	if !ok {
		lock = &sync.Mutex{}
		s.visits[key] = lock
	}
	return lock
}
