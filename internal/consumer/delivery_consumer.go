package consumer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"premier-care-hub/internal/redis"
	"premier-care-hub/internal/service"
)

// DeliveryConsumerConfig 回执消费配置
type DeliveryConsumerConfig struct {
	TenantID      string
	Stream        string
	ConsumerGroup string
	ConsumerName  string
	BatchSize     int64
}

// DeliveryConsumer SMS/语音供应商投递回执消费者
// 回执网关把供应商回调写入 Redis Stream，这里消费并落为外呼尝试记录
// 消息字段：violation_id, channel, sent_at(unix), delivered, patient_reached(可选)
type DeliveryConsumer struct {
	client      *goredis.Client
	outreachSvc *service.OutreachService
	cfg         DeliveryConsumerConfig
	logger      *zap.Logger
}

// NewDeliveryConsumer 创建回执消费者
func NewDeliveryConsumer(client *goredis.Client, outreachSvc *service.OutreachService, cfg DeliveryConsumerConfig, logger *zap.Logger) *DeliveryConsumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = "evv-engine-1"
	}
	return &DeliveryConsumer{
		client:      client,
		outreachSvc: outreachSvc,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run 启动消费循环，ctx 取消后返回
func (c *DeliveryConsumer) Run(ctx context.Context) error {
	if err := redis.CreateConsumerGroup(ctx, c.client, c.cfg.Stream, c.cfg.ConsumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("delivery consumer started",
		zap.String("stream", c.cfg.Stream),
		zap.String("group", c.cfg.ConsumerGroup))

	for {
		if ctx.Err() != nil {
			c.logger.Info("delivery consumer stopped")
			return nil
		}

		messages, err := redis.ReadFromStream(ctx, c.client, c.cfg.Stream, c.cfg.ConsumerGroup, c.cfg.ConsumerName, c.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("failed to read delivery stream", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			// 单条消息解析失败也确认掉，避免毒消息阻塞消费组
			if err := c.handleMessage(ctx, msg); err != nil {
				c.logger.Error("failed to process delivery callback",
					zap.String("message_id", msg.ID),
					zap.Error(err))
			}
			if err := redis.AckMessage(ctx, c.client, c.cfg.Stream, c.cfg.ConsumerGroup, msg.ID); err != nil {
				c.logger.Error("failed to ack delivery callback",
					zap.String("message_id", msg.ID),
					zap.Error(err))
			}
		}
	}
}

// HandleOnce 读取并处理一批消息（测试入口）
func (c *DeliveryConsumer) HandleOnce(ctx context.Context) (int, error) {
	if err := redis.CreateConsumerGroup(ctx, c.client, c.cfg.Stream, c.cfg.ConsumerGroup); err != nil {
		return 0, err
	}
	messages, err := redis.ReadFromStream(ctx, c.client, c.cfg.Stream, c.cfg.ConsumerGroup, c.cfg.ConsumerName, c.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, msg := range messages {
		if err := c.handleMessage(ctx, msg); err != nil {
			c.logger.Error("failed to process delivery callback",
				zap.String("message_id", msg.ID),
				zap.Error(err))
		} else {
			processed++
		}
		if err := redis.AckMessage(ctx, c.client, c.cfg.Stream, c.cfg.ConsumerGroup, msg.ID); err != nil {
			return processed, err
		}
	}
	return processed, nil
}

func (c *DeliveryConsumer) handleMessage(ctx context.Context, msg redis.StreamMessage) error {
	violationID := stringField(msg.Values, "violation_id")
	channel := stringField(msg.Values, "channel")
	if violationID == "" || channel == "" {
		return fmt.Errorf("callback missing violation_id or channel")
	}

	sentAt := time.Now()
	if raw := stringField(msg.Values, "sent_at"); raw != "" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid sent_at %q: %w", raw, err)
		}
		sentAt = time.Unix(unix, 0).UTC()
	}

	req := service.RecordAttemptRequest{
		ViolationID: violationID,
		Channel:     channel,
		SentAt:      sentAt,
		Delivered:   stringField(msg.Values, "delivered") == "true",
	}
	// patient_reached 缺省表示回执未带可达性信息，保持 last-known-value
	if raw := stringField(msg.Values, "patient_reached"); raw != "" {
		reached := raw == "true"
		req.PatientReached = &reached
	}

	_, err := c.outreachSvc.RecordAttempt(ctx, c.cfg.TenantID, req)
	return err
}

func stringField(values map[string]interface{}, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
