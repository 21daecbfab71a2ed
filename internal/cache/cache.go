package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Manager 看板视图与合规快照的读穿缓存
// 键格式：{prefix}tenant:{tenant_id}:{view_key}
// 告警状态变更时按租户整体失效，避免跟踪细粒度依赖
type Manager struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewManager 创建缓存管理器
func NewManager(client *goredis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

func (m *Manager) key(tenantID, viewKey string) string {
	return fmt.Sprintf("%stenant:%s:%s", m.prefix, tenantID, viewKey)
}

// GetJSON 读取缓存并反序列化；返回 false 表示未命中
// 缓存故障降级为未命中，不阻塞读路径
func (m *Manager) GetJSON(ctx context.Context, tenantID, viewKey string, dest interface{}) bool {
	if m == nil || m.client == nil {
		return false
	}

	data, err := m.client.Get(ctx, m.key(tenantID, viewKey)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			m.logger.Warn("cache read failed",
				zap.String("key", m.key(tenantID, viewKey)),
				zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		m.logger.Warn("cache entry corrupted, dropping",
			zap.String("key", m.key(tenantID, viewKey)),
			zap.Error(err))
		m.client.Del(ctx, m.key(tenantID, viewKey))
		return false
	}
	return true
}

// SetJSON 序列化并写入缓存，带TTL
func (m *Manager) SetJSON(ctx context.Context, tenantID, viewKey string, value interface{}) {
	if m == nil || m.client == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		m.logger.Warn("cache marshal failed",
			zap.String("key", m.key(tenantID, viewKey)),
			zap.Error(err))
		return
	}
	if err := m.client.Set(ctx, m.key(tenantID, viewKey), data, m.ttl).Err(); err != nil {
		m.logger.Warn("cache write failed",
			zap.String("key", m.key(tenantID, viewKey)),
			zap.Error(err))
	}
}

// InvalidateTenant 按租户整体失效（告警开启/处理/回退后调用）
func (m *Manager) InvalidateTenant(ctx context.Context, tenantID string) {
	if m == nil || m.client == nil {
		return
	}

	pattern := fmt.Sprintf("%stenant:%s:*", m.prefix, tenantID)
	iter := m.client.Scan(ctx, 0, pattern, 100).Iterator()
	keys := []string{}
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		m.logger.Warn("cache invalidation scan failed",
			zap.String("pattern", pattern),
			zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := m.client.Del(ctx, keys...).Err(); err != nil {
		m.logger.Warn("cache invalidation delete failed",
			zap.String("pattern", pattern),
			zap.Error(err))
	}
}
