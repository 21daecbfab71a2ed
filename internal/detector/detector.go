package detector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
	"premier-care-hub/internal/service"
)

// Notifier 违规外呼派发入口（发送即忘，不阻塞检测）
type Notifier interface {
	NotifyViolation(tenantID string, violation *domain.ViolationEvent, visit *domain.Visit)
}

// Detector 违规检测器
// 评估窗口关闭后判定：签到窗口 = scheduledStart + toleranceIn，
// 签退窗口 = scheduledEnd + toleranceOut
// 检测幂等：同一访视同一类违规只记录一次；迟到打卡不撤销已发违规
type Detector struct {
	visitsRepo     repository.VisitsRepository
	violationsRepo repository.ViolationsRepository
	alertService   *service.AlertService
	notifier       Notifier
	tolerances     service.Tolerances
	now            func() time.Time
	logger         *zap.Logger
}

// NewDetector 创建违规检测器
func NewDetector(
	visitsRepo repository.VisitsRepository,
	violationsRepo repository.ViolationsRepository,
	alertService *service.AlertService,
	notifier Notifier,
	tolerances service.Tolerances,
	logger *zap.Logger,
) *Detector {
	return &Detector{
		visitsRepo:     visitsRepo,
		violationsRepo: violationsRepo,
		alertService:   alertService,
		notifier:       notifier,
		tolerances:     tolerances,
		now:            time.Now,
		logger:         logger,
	}
}

// EvaluateVisit 评估单个访视，返回本次新开的告警数
// "Both" 是独立类别：两个窗口都关闭且都缺卡时只发一条 missed_both；
// 已有单项违规（如先发 missed_clock_in）后另一项再缺卡，补发对应单项，
// 不再合并为 missed_both
func (d *Detector) EvaluateVisit(ctx context.Context, tenantID string, visit *domain.Visit) (int, error) {
	now := d.now()
	inClosed := !now.Before(visit.ScheduledStart.Add(d.tolerances.In))
	outClosed := !now.Before(visit.ScheduledEnd.Add(d.tolerances.Out))

	missIn := inClosed && visit.ActualClockIn == nil
	missOut := outClosed && visit.ActualClockOut == nil
	if !missIn && !missOut {
		return 0, nil
	}

	bothExists, err := d.violationsRepo.ViolationExists(ctx, tenantID, visit.VisitID, domain.ViolationMissedBoth)
	if err != nil {
		return 0, fmt.Errorf("failed to check both-violation: %w", err)
	}
	if bothExists {
		return 0, nil
	}
	inExists, err := d.violationsRepo.ViolationExists(ctx, tenantID, visit.VisitID, domain.ViolationMissedClockIn)
	if err != nil {
		return 0, fmt.Errorf("failed to check clock-in violation: %w", err)
	}
	outExists, err := d.violationsRepo.ViolationExists(ctx, tenantID, visit.VisitID, domain.ViolationMissedClockOut)
	if err != nil {
		return 0, fmt.Errorf("failed to check clock-out violation: %w", err)
	}

	kinds := []string{}
	if missIn && missOut && !inExists && !outExists {
		kinds = append(kinds, domain.ViolationMissedBoth)
	} else {
		if missIn && !inExists {
			kinds = append(kinds, domain.ViolationMissedClockIn)
		}
		if missOut && !outExists {
			kinds = append(kinds, domain.ViolationMissedClockOut)
		}
	}

	opened := 0
	for _, kind := range kinds {
		alert, err := d.alertService.OpenAlertForViolation(ctx, tenantID, visit.VisitID, kind, now)
		if err != nil {
			return opened, err
		}
		if alert == nil {
			// 并发扫描已记录同类违规
			continue
		}
		opened++

		if d.notifier != nil {
			violation := &domain.ViolationEvent{
				ViolationID: alert.ViolationID,
				TenantID:    tenantID,
				VisitID:     visit.VisitID,
				Kind:        kind,
				DetectedAt:  now,
			}
			d.notifier.NotifyViolation(tenantID, violation, visit)
		}
	}
	return opened, nil
}
