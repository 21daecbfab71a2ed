package engine

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"premier-care-hub/internal/config"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	mr := miniredis.RunT(t)

	cfg := &config.Config{}
	cfg.TenantID = "tenant-1"
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.DBEnabled = false
	cfg.Redis.Addr = mr.Addr()
	cfg.Detector.ToleranceIn = 15 * time.Minute
	cfg.Detector.ToleranceOut = 15 * time.Minute
	cfg.Detector.SweepInterval = time.Hour
	cfg.Outreach.DeliveryStream = "evv:outreach:delivery"
	cfg.Outreach.ConsumerGroup = "evv-engine"
	cfg.Cache.KeyPrefix = "evv:"
	cfg.Cache.ViewTTL = 30
	return cfg
}

func TestNewEngine_RequiresTenantID(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.TenantID = ""

	_, err := NewEngine(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestEngine_StartStop(t *testing.T) {
	cfg := newTestConfig(t)

	eng, err := NewEngine(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, eng.Start(ctx))

	require.NoError(t, eng.Stop())
}

func TestEngine_StopBeforeStart(t *testing.T) {
	cfg := newTestConfig(t)

	eng, err := NewEngine(cfg, zap.NewNop())
	require.NoError(t, err)

	// Stop on a never-started engine must not hang
	require.NoError(t, eng.Stop())
}
