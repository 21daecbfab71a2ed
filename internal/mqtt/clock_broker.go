package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/service"
)

// ClockEvent 现场打卡设备上报的事件
// 主题格式：evv/{tenant_id}/clock
type ClockEvent struct {
	VisitID   string `json:"visit_id"`
	Kind      string `json:"kind"`      // clock_in | clock_out
	Timestamp int64  `json:"timestamp"` // unix 秒
}

// ClockBroker 打卡事件接入
// 现场设备 at-least-once 投递：重复事件靠台账幂等规则吸收，
// 冲突事件记日志丢弃（设备侧无法消费错误响应）
type ClockBroker struct {
	client    *Client
	ledgerSvc *service.LedgerService
	tenantID  string
	topic     string
	qos       byte
	logger    *zap.Logger
}

// NewClockBroker 创建打卡事件接入
func NewClockBroker(client *Client, ledgerSvc *service.LedgerService, tenantID, topic string, qos byte, logger *zap.Logger) *ClockBroker {
	return &ClockBroker{
		client:    client,
		ledgerSvc: ledgerSvc,
		tenantID:  tenantID,
		topic:     topic,
		qos:       qos,
		logger:    logger,
	}
}

// Start 订阅打卡主题
func (b *ClockBroker) Start() error {
	if err := b.client.Subscribe(b.topic, b.qos, b.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe clock topic: %w", err)
	}
	b.logger.Info("clock broker subscribed",
		zap.String("topic", b.topic),
		zap.String("tenant_id", b.tenantID))
	return nil
}

// Stop 取消订阅
func (b *ClockBroker) Stop() {
	if err := b.client.Unsubscribe(b.topic); err != nil {
		b.logger.Warn("failed to unsubscribe clock topic", zap.Error(err))
	}
}

func (b *ClockBroker) handleMessage(topic string, payload []byte) error {
	tenantID, err := tenantFromTopic(topic)
	if err != nil {
		return err
	}
	if tenantID != b.tenantID {
		// 本实例只服务一个租户，其它租户的事件直接忽略
		return nil
	}

	var event ClockEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("invalid clock event payload: %w", err)
	}
	if event.VisitID == "" || event.Timestamp <= 0 {
		return fmt.Errorf("clock event missing visit_id or timestamp")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ts := time.Unix(event.Timestamp, 0).UTC()
	switch event.Kind {
	case "clock_in":
		err = b.ledgerSvc.RecordClockIn(ctx, tenantID, event.VisitID, ts)
	case "clock_out":
		err = b.ledgerSvc.RecordClockOut(ctx, tenantID, event.VisitID, ts)
	default:
		return fmt.Errorf("unknown clock event kind: %s", event.Kind)
	}

	if err != nil {
		// 冲突与封账是业务性拒绝，记日志即可；设备无法处理错误响应
		b.logger.Warn("clock event rejected",
			zap.String("visit_id", event.VisitID),
			zap.String("kind", event.Kind),
			zap.Error(err))
		if err == domain.ErrClockConflict || err == domain.ErrDayClosed {
			return nil
		}
		return err
	}
	return nil
}

// tenantFromTopic 从 evv/{tenant_id}/clock 提取租户ID
func tenantFromTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "evv" || parts[2] != "clock" || parts[1] == "" {
		return "", fmt.Errorf("unexpected clock topic: %s", topic)
	}
	return parts[1], nil
}
