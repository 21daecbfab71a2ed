package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
)

// OutreachService 外呼跟踪服务
// 外呼记录只增不改；患者可达性按 last-known-value 维护，
// 回执未带可达性信息时保持原值不动
type OutreachService struct {
	outreachRepo   repository.OutreachRepository
	violationsRepo repository.ViolationsRepository
	visitsRepo     repository.VisitsRepository
	patientsRepo   repository.PatientsRepository
	logger         *zap.Logger
}

// NewOutreachService 创建外呼服务
func NewOutreachService(
	outreachRepo repository.OutreachRepository,
	violationsRepo repository.ViolationsRepository,
	visitsRepo repository.VisitsRepository,
	patientsRepo repository.PatientsRepository,
	logger *zap.Logger,
) *OutreachService {
	return &OutreachService{
		outreachRepo:   outreachRepo,
		violationsRepo: violationsRepo,
		visitsRepo:     visitsRepo,
		patientsRepo:   patientsRepo,
		logger:         logger,
	}
}

// RecordAttemptRequest 记录外呼尝试请求
type RecordAttemptRequest struct {
	ViolationID    string    `json:"violation_id"`
	Channel        string    `json:"channel"`
	SentAt         time.Time `json:"sent_at"`
	Delivered      bool      `json:"delivered"`
	PatientReached *bool     `json:"patient_reached,omitempty"`
}

// RecordAttempt 记录一次外呼尝试
func (s *OutreachService) RecordAttempt(ctx context.Context, tenantID string, req RecordAttemptRequest) (*domain.OutreachAttempt, error) {
	// 参数验证
	if req.ViolationID == "" {
		return nil, fmt.Errorf("violation_id is required")
	}
	if req.Channel != domain.ChannelSMS && req.Channel != domain.ChannelVoice {
		return nil, fmt.Errorf("unknown outreach channel: %s", req.Channel)
	}
	if req.SentAt.IsZero() {
		return nil, fmt.Errorf("sent_at is required")
	}

	violation, err := s.violationsRepo.GetViolation(ctx, tenantID, req.ViolationID)
	if err != nil {
		return nil, err
	}

	attempt := &domain.OutreachAttempt{
		AttemptID:      uuid.New().String(),
		TenantID:       tenantID,
		ViolationID:    req.ViolationID,
		Channel:        req.Channel,
		SentAt:         req.SentAt,
		Delivered:      req.Delivered,
		PatientReached: req.PatientReached,
	}
	if err := s.outreachRepo.AppendAttempt(ctx, tenantID, attempt); err != nil {
		return nil, err
	}

	// 回执带回可达性时更新患者 last-known-value
	if req.PatientReached != nil {
		if err := s.updateReachability(ctx, tenantID, violation.VisitID, *req.PatientReached); err != nil {
			// 可达性更新失败不回滚外呼记录
			s.logger.Warn("failed to update patient reachability",
				zap.String("tenant_id", tenantID),
				zap.String("violation_id", req.ViolationID),
				zap.Error(err))
		}
	}

	s.logger.Info("outreach attempt recorded",
		zap.String("tenant_id", tenantID),
		zap.String("violation_id", req.ViolationID),
		zap.String("channel", req.Channel),
		zap.Bool("delivered", req.Delivered))
	return attempt, nil
}

func (s *OutreachService) updateReachability(ctx context.Context, tenantID, visitID string, reachable bool) error {
	visit, err := s.visitsRepo.GetVisit(ctx, tenantID, visitID)
	if err != nil {
		return err
	}
	return s.patientsRepo.SetPatientReachable(ctx, tenantID, visit.PatientID, reachable)
}

// ListAttempts 查询某违规的全部外呼尝试（审计口径）
func (s *OutreachService) ListAttempts(ctx context.Context, tenantID, violationID string) ([]*domain.OutreachAttempt, error) {
	if violationID == "" {
		return nil, fmt.Errorf("violation_id is required")
	}
	return s.outreachRepo.ListAttemptsByViolation(ctx, tenantID, violationID)
}

// LatestPerChannel 每渠道最近一次尝试（看板口径）
func (s *OutreachService) LatestPerChannel(ctx context.Context, tenantID, violationID string) (map[string]*domain.OutreachAttempt, error) {
	if violationID == "" {
		return nil, fmt.Errorf("violation_id is required")
	}
	return s.outreachRepo.LatestPerChannel(ctx, tenantID, violationID)
}
