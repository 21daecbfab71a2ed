package httpapi

import (
	"net/http"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"premier-care-hub/internal/redis"
	"premier-care-hub/internal/service"
)

// OutreachHandler 外呼记录接口
type OutreachHandler struct {
	outreachSvc  *service.OutreachService
	streamClient *goredis.Client // 供应商回执转投的 Stream（可为空）
	stream       string
	logger       *zap.Logger
}

// NewOutreachHandler 创建外呼接口
// streamClient 为空时回执直接落库，不经过 Stream
func NewOutreachHandler(outreachSvc *service.OutreachService, streamClient *goredis.Client, stream string, logger *zap.Logger) *OutreachHandler {
	return &OutreachHandler{
		outreachSvc:  outreachSvc,
		streamClient: streamClient,
		stream:       stream,
		logger:       logger,
	}
}

// RecordAttempt POST /evv/api/v1/outreach/attempts
func (h *OutreachHandler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req service.RecordAttemptRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	attempt, err := h.outreachSvc.RecordAttempt(r.Context(), tenantID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(attempt))
}

// deliveryCallback SMS/语音供应商投递回执
type deliveryCallback struct {
	ViolationID    string    `json:"violation_id"`
	Channel        string    `json:"channel"`
	SentAt         time.Time `json:"sent_at"`
	Delivered      bool      `json:"delivered"`
	PatientReached *bool     `json:"patient_reached,omitempty"`
}

// Callback POST /evv/api/v1/outreach/callback
// 供应商回调先写入 Redis Stream，由消费者异步落库，避免回调超时重试风暴
func (h *OutreachHandler) Callback(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var cb deliveryCallback
	if err := readBodyJSON(r, 1<<20, &cb); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if cb.ViolationID == "" || cb.Channel == "" {
		writeJSON(w, http.StatusBadRequest, Fail("violation_id and channel are required"))
		return
	}
	if cb.SentAt.IsZero() {
		cb.SentAt = time.Now()
	}

	if h.streamClient == nil {
		// Redis 不可用时退化为同步落库
		req := service.RecordAttemptRequest{
			ViolationID:    cb.ViolationID,
			Channel:        cb.Channel,
			SentAt:         cb.SentAt,
			Delivered:      cb.Delivered,
			PatientReached: cb.PatientReached,
		}
		if _, err := h.outreachSvc.RecordAttempt(r.Context(), tenantID, req); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "recorded"}))
		return
	}

	values := map[string]interface{}{
		"violation_id": cb.ViolationID,
		"channel":      cb.Channel,
		"sent_at":      strconv.FormatInt(cb.SentAt.Unix(), 10),
		"delivered":    strconv.FormatBool(cb.Delivered),
	}
	if cb.PatientReached != nil {
		values["patient_reached"] = strconv.FormatBool(*cb.PatientReached)
	}
	if _, err := redis.PublishToStream(r.Context(), h.streamClient, h.stream, values); err != nil {
		h.logger.Error("failed to publish delivery callback",
			zap.String("tenant_id", tenantID),
			zap.String("violation_id", cb.ViolationID),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to queue callback"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "queued"}))
}

// ListAttempts GET /evv/api/v1/outreach/attempts?violation_id=...
func (h *OutreachHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	violationID := r.URL.Query().Get("violation_id")
	if violationID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("violation_id query parameter is required"))
		return
	}

	attempts, err := h.outreachSvc.ListAttempts(r.Context(), tenantID, violationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(attempts))
}
