package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
)

// DispatchRequest 外呼网关请求体
type DispatchRequest struct {
	TenantID    string `json:"tenant_id"`
	ViolationID string `json:"violation_id"`
	Channel     string `json:"channel"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
}

// DispatchResponse 外呼网关响应体
type DispatchResponse struct {
	Accepted  bool   `json:"accepted"`
	MessageID string `json:"message_id"`
	Error     string `json:"error,omitempty"`
}

// Dispatcher 外呼派发器
// 发送即忘：检测流程不等待发送结果，投递回执走供应商回调流
type Dispatcher struct {
	httpClient   *resty.Client
	patientsRepo repository.PatientsRepository
	logger       *zap.Logger
}

// NewDispatcher 创建外呼派发器
func NewDispatcher(baseURL, apiKey string, patientsRepo repository.PatientsRepository, logger *zap.Logger) *Dispatcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "Bearer "+apiKey)

	return &Dispatcher{
		httpClient:   client,
		patientsRepo: patientsRepo,
		logger:       logger,
	}
}

// NotifyViolation 对一条违规派发 SMS + 语音外呼（后台执行）
func (d *Dispatcher) NotifyViolation(tenantID string, violation *domain.ViolationEvent, visit *domain.Visit) {
	go func() {
		phone, err := d.patientPhone(tenantID, visit.PatientID)
		if err != nil {
			d.logger.Warn("skipping outreach dispatch, no patient phone",
				zap.String("tenant_id", tenantID),
				zap.String("violation_id", violation.ViolationID),
				zap.Error(err))
			return
		}

		message := fmt.Sprintf("Missed %s for visit scheduled %s. Please confirm caregiver arrival.",
			domain.MissedTypeLabel(violation.Kind),
			visit.ScheduledStart.Format("2006-01-02 15:04"))

		for _, channel := range []string{domain.ChannelSMS, domain.ChannelVoice} {
			d.dispatch(DispatchRequest{
				TenantID:    tenantID,
				ViolationID: violation.ViolationID,
				Channel:     channel,
				Phone:       phone,
				Message:     message,
			})
		}
	}()
}

func (d *Dispatcher) patientPhone(tenantID, patientID string) (string, error) {
	patient, err := d.patientsRepo.GetPatient(context.Background(), tenantID, patientID)
	if err != nil {
		return "", err
	}
	if patient.Phone == "" {
		return "", fmt.Errorf("patient has no phone: patient_id=%s", patientID)
	}
	return patient.Phone, nil
}

func (d *Dispatcher) dispatch(req DispatchRequest) {
	var resp DispatchResponse
	httpResp, err := d.httpClient.R().
		SetBody(req).
		SetResult(&resp).
		Post("/v1/dispatch")
	if err != nil {
		d.logger.Warn("outreach dispatch failed",
			zap.String("violation_id", req.ViolationID),
			zap.String("channel", req.Channel),
			zap.Error(err))
		return
	}
	if httpResp.IsError() || !resp.Accepted {
		d.logger.Warn("outreach dispatch rejected",
			zap.String("violation_id", req.ViolationID),
			zap.String("channel", req.Channel),
			zap.Int("status", httpResp.StatusCode()),
			zap.String("provider_error", resp.Error))
		return
	}

	d.logger.Info("outreach dispatched",
		zap.String("violation_id", req.ViolationID),
		zap.String("channel", req.Channel),
		zap.String("message_id", resp.MessageID))
}
