package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"premier-care-hub/internal/cache"
	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
)

// AlertService 告警生命周期服务
// 每条违规事件恰好对应一条告警，状态机 open ↔ resolved 由仓储层条件更新保证
type AlertService struct {
	alertsRepo     repository.AlertsRepository
	violationsRepo repository.ViolationsRepository
	cache          *cache.Manager
	logger         *zap.Logger
}

// NewAlertService 创建告警服务
func NewAlertService(
	alertsRepo repository.AlertsRepository,
	violationsRepo repository.ViolationsRepository,
	cacheMgr *cache.Manager,
	logger *zap.Logger,
) *AlertService {
	return &AlertService{
		alertsRepo:     alertsRepo,
		violationsRepo: violationsRepo,
		cache:          cacheMgr,
		logger:         logger,
	}
}

// OpenAlertForViolation 记录违规事件并开启对应告警（同一事务）
// 同一访视同一类违规只记录一次；重复检测返回已有告警
func (s *AlertService) OpenAlertForViolation(ctx context.Context, tenantID, visitID, kind string, detectedAt time.Time) (*domain.Alert, error) {
	switch kind {
	case domain.ViolationMissedClockIn, domain.ViolationMissedClockOut, domain.ViolationMissedBoth:
	default:
		return nil, fmt.Errorf("unknown violation kind: %s", kind)
	}

	exists, err := s.violationsRepo.ViolationExists(ctx, tenantID, visitID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to check violation: %w", err)
	}
	if exists {
		return nil, nil
	}

	violation := &domain.ViolationEvent{
		ViolationID: uuid.New().String(),
		TenantID:    tenantID,
		VisitID:     visitID,
		Kind:        kind,
		DetectedAt:  detectedAt,
	}
	alert := &domain.Alert{
		AlertID:     uuid.New().String(),
		TenantID:    tenantID,
		ViolationID: violation.ViolationID,
		AlertStatus: domain.AlertStatusOpen,
		IsNew:       true,
		CreatedAt:   detectedAt,
		UpdatedAt:   detectedAt,
	}

	if err := s.alertsRepo.OpenAlert(ctx, tenantID, violation, alert); err != nil {
		return nil, fmt.Errorf("failed to open alert: %w", err)
	}
	s.cache.InvalidateTenant(ctx, tenantID)

	s.logger.Info("alert opened",
		zap.String("tenant_id", tenantID),
		zap.String("visit_id", visitID),
		zap.String("kind", kind),
		zap.String("alert_id", alert.AlertID))
	return alert, nil
}

// GetAlert 获取单个告警
func (s *AlertService) GetAlert(ctx context.Context, tenantID, alertID string) (*domain.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}
	return s.alertsRepo.GetAlert(ctx, tenantID, alertID)
}

// ListOpenAlerts 查询全部未处理告警
func (s *AlertService) ListOpenAlerts(ctx context.Context, tenantID string) ([]*domain.Alert, error) {
	return s.alertsRepo.ListAlertsByStatus(ctx, tenantID, domain.AlertStatusOpen)
}

// ListResolvedOn 查询某天处理完结的告警（日干预记录）
func (s *AlertService) ListResolvedOn(ctx context.Context, tenantID, date string) ([]*domain.Alert, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return s.alertsRepo.ListResolvedOn(ctx, tenantID, date)
}

// Resolve 处理告警：open → resolved
// 并发处理同一告警时恰好一个成功，其余收到 ErrAlreadyResolved
func (s *AlertService) Resolve(ctx context.Context, tenantID, alertID string) (*domain.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	ok, err := s.alertsRepo.ResolveAlert(ctx, tenantID, alertID, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAlreadyResolved
	}
	s.cache.InvalidateTenant(ctx, tenantID)

	s.logger.Info("alert resolved",
		zap.String("tenant_id", tenantID),
		zap.String("alert_id", alertID))
	return s.alertsRepo.GetAlert(ctx, tenantID, alertID)
}

// Revert 回退告警：resolved → open
func (s *AlertService) Revert(ctx context.Context, tenantID, alertID string) (*domain.Alert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	ok, err := s.alertsRepo.RevertAlert(ctx, tenantID, alertID, time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotResolved
	}
	s.cache.InvalidateTenant(ctx, tenantID)

	s.logger.Info("alert reverted",
		zap.String("tenant_id", tenantID),
		zap.String("alert_id", alertID))
	return s.alertsRepo.GetAlert(ctx, tenantID, alertID)
}

// MarkSeen 标记已读，不改变生命周期状态
func (s *AlertService) MarkSeen(ctx context.Context, tenantID, alertID string) error {
	if alertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if err := s.alertsRepo.MarkSeen(ctx, tenantID, alertID); err != nil {
		return err
	}
	s.cache.InvalidateTenant(ctx, tenantID)
	return nil
}

// History 查询告警处理历史（acted_at 升序）
func (s *AlertService) History(ctx context.Context, tenantID, alertID string) ([]*domain.AlertAction, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}
	if _, err := s.alertsRepo.GetAlert(ctx, tenantID, alertID); err != nil {
		return nil, err
	}
	return s.alertsRepo.ListActions(ctx, tenantID, alertID)
}
