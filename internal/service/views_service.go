package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"premier-care-hub/internal/cache"
	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
)

// OutreachView 看板上单渠道的最近一次外呼状态
type OutreachView struct {
	SentAt         time.Time `json:"sent_at"`
	Delivered      bool      `json:"delivered"`
	PatientReached *bool     `json:"patient_reached,omitempty"`
}

// AlertView 告警看板行：告警 + 访视 + 护理员 + 患者 + 每渠道最近外呼
type AlertView struct {
	AlertID        string                  `json:"alert_id"`
	ViolationID    string                  `json:"violation_id"`
	VisitID        string                  `json:"visit_id"`
	AlertStatus    string                  `json:"alert_status"`
	IsNew          bool                    `json:"is_new"`
	MissedType     string                  `json:"missed_type"`
	DetectedAt     time.Time               `json:"detected_at"`
	ResolvedAt     *time.Time              `json:"resolved_at,omitempty"`
	VisitDate      string                  `json:"visit_date"`
	ScheduledStart time.Time               `json:"scheduled_start"`
	ScheduledEnd   time.Time               `json:"scheduled_end"`
	CaregiverID    string                  `json:"caregiver_id"`
	CaregiverName  string                  `json:"caregiver_name"`
	PatientID      string                  `json:"patient_id"`
	PatientName    string                  `json:"patient_name"`
	PatientPhone   string                  `json:"patient_phone"`
	Reachable      bool                    `json:"reachable"`
	Outreach       map[string]OutreachView `json:"outreach"`
}

// ViewsService 看板只读投影服务
// 视图是派生数据：展示层不直接改任何字段，全部变更走各自的服务入口
type ViewsService struct {
	alertsRepo     repository.AlertsRepository
	violationsRepo repository.ViolationsRepository
	visitsRepo     repository.VisitsRepository
	caregiversRepo repository.CaregiversRepository
	patientsRepo   repository.PatientsRepository
	outreachRepo   repository.OutreachRepository
	cache          *cache.Manager
	logger         *zap.Logger
}

// NewViewsService 创建看板投影服务
func NewViewsService(
	alertsRepo repository.AlertsRepository,
	violationsRepo repository.ViolationsRepository,
	visitsRepo repository.VisitsRepository,
	caregiversRepo repository.CaregiversRepository,
	patientsRepo repository.PatientsRepository,
	outreachRepo repository.OutreachRepository,
	cacheMgr *cache.Manager,
	logger *zap.Logger,
) *ViewsService {
	return &ViewsService{
		alertsRepo:     alertsRepo,
		violationsRepo: violationsRepo,
		visitsRepo:     visitsRepo,
		caregiversRepo: caregiversRepo,
		patientsRepo:   patientsRepo,
		outreachRepo:   outreachRepo,
		cache:          cacheMgr,
		logger:         logger,
	}
}

// ActiveAlertViews 未处理告警看板（open 状态，created_at 升序）
func (s *ViewsService) ActiveAlertViews(ctx context.Context, tenantID string) ([]*AlertView, error) {
	var cached []*AlertView
	if s.cache.GetJSON(ctx, tenantID, "alerts:active", &cached) {
		return cached, nil
	}

	alerts, err := s.alertsRepo.ListAlertsByStatus(ctx, tenantID, domain.AlertStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("failed to list open alerts: %w", err)
	}

	views, err := s.buildViews(ctx, tenantID, alerts)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, tenantID, "alerts:active", views)
	return views, nil
}

// FlaggedTodayViews 某天处理完结的告警（resolved_at 落在该天）
func (s *ViewsService) FlaggedTodayViews(ctx context.Context, tenantID, date string) ([]*AlertView, error) {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}

	cacheKey := "alerts:flagged:" + date
	var cached []*AlertView
	if s.cache.GetJSON(ctx, tenantID, cacheKey, &cached) {
		return cached, nil
	}

	alerts, err := s.alertsRepo.ListResolvedOn(ctx, tenantID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolved alerts: %w", err)
	}

	views, err := s.buildViews(ctx, tenantID, alerts)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, tenantID, cacheKey, views)
	return views, nil
}

func (s *ViewsService) buildViews(ctx context.Context, tenantID string, alerts []*domain.Alert) ([]*AlertView, error) {
	views := make([]*AlertView, 0, len(alerts))
	for _, alert := range alerts {
		view, err := s.buildView(ctx, tenantID, alert)
		if err != nil {
			// 单条关联数据缺失不拖垮整个看板
			s.logger.Warn("skipping alert view",
				zap.String("tenant_id", tenantID),
				zap.String("alert_id", alert.AlertID),
				zap.Error(err))
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *ViewsService) buildView(ctx context.Context, tenantID string, alert *domain.Alert) (*AlertView, error) {
	violation, err := s.violationsRepo.GetViolation(ctx, tenantID, alert.ViolationID)
	if err != nil {
		return nil, fmt.Errorf("violation lookup failed: %w", err)
	}
	visit, err := s.visitsRepo.GetVisit(ctx, tenantID, violation.VisitID)
	if err != nil {
		return nil, fmt.Errorf("visit lookup failed: %w", err)
	}

	view := &AlertView{
		AlertID:        alert.AlertID,
		ViolationID:    alert.ViolationID,
		VisitID:        visit.VisitID,
		AlertStatus:    alert.AlertStatus,
		IsNew:          alert.IsNew,
		MissedType:     domain.MissedTypeLabel(violation.Kind),
		DetectedAt:     violation.DetectedAt,
		ResolvedAt:     alert.ResolvedAt,
		VisitDate:      visit.VisitDate,
		ScheduledStart: visit.ScheduledStart,
		ScheduledEnd:   visit.ScheduledEnd,
		CaregiverID:    visit.CaregiverID,
		PatientID:      visit.PatientID,
		Outreach:       map[string]OutreachView{},
	}

	// 参考数据缺失降级为空字段，不视为错误
	if caregiver, err := s.caregiversRepo.GetCaregiver(ctx, tenantID, visit.CaregiverID); err == nil {
		view.CaregiverName = caregiver.CaregiverName
	}
	if patient, err := s.patientsRepo.GetPatient(ctx, tenantID, visit.PatientID); err == nil {
		view.PatientName = patient.PatientName
		view.PatientPhone = patient.Phone
		view.Reachable = patient.Reachable
	}

	latest, err := s.outreachRepo.LatestPerChannel(ctx, tenantID, alert.ViolationID)
	if err != nil {
		return nil, fmt.Errorf("outreach lookup failed: %w", err)
	}
	for channel, attempt := range latest {
		view.Outreach[channel] = OutreachView{
			SentAt:         attempt.SentAt,
			Delivered:      attempt.Delivered,
			PatientReached: attempt.PatientReached,
		}
	}
	return view, nil
}
