package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupCache(t *testing.T) (*miniredis.Miniredis, *Manager) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewManager(client, "evv:", 30*time.Second, zap.NewNop())
}

type testView struct {
	AlertID string `json:"alert_id"`
	Status  string `json:"status"`
}

func TestCache_RoundTrip(t *testing.T) {
	_, mgr := setupCache(t)
	ctx := context.Background()

	var missed testView
	assert.False(t, mgr.GetJSON(ctx, "tenant-1", "alerts:active", &missed))

	mgr.SetJSON(ctx, "tenant-1", "alerts:active", testView{AlertID: "AL-1", Status: "open"})

	var got testView
	require.True(t, mgr.GetJSON(ctx, "tenant-1", "alerts:active", &got))
	assert.Equal(t, "AL-1", got.AlertID)
	assert.Equal(t, "open", got.Status)
}

func TestCache_EntriesExpire(t *testing.T) {
	mr, mgr := setupCache(t)
	ctx := context.Background()

	mgr.SetJSON(ctx, "tenant-1", "alerts:active", testView{AlertID: "AL-1"})
	mr.FastForward(time.Minute)

	var got testView
	assert.False(t, mgr.GetJSON(ctx, "tenant-1", "alerts:active", &got))
}

func TestCache_InvalidateTenantIsScoped(t *testing.T) {
	_, mgr := setupCache(t)
	ctx := context.Background()

	mgr.SetJSON(ctx, "tenant-1", "alerts:active", testView{AlertID: "AL-1"})
	mgr.SetJSON(ctx, "tenant-1", "snapshot:day:2026-03-02", testView{AlertID: "AL-2"})
	mgr.SetJSON(ctx, "tenant-2", "alerts:active", testView{AlertID: "AL-3"})

	mgr.InvalidateTenant(ctx, "tenant-1")

	var got testView
	assert.False(t, mgr.GetJSON(ctx, "tenant-1", "alerts:active", &got))
	assert.False(t, mgr.GetJSON(ctx, "tenant-1", "snapshot:day:2026-03-02", &got))
	assert.True(t, mgr.GetJSON(ctx, "tenant-2", "alerts:active", &got))
}

func TestCache_NilManagerIsSafe(t *testing.T) {
	var mgr *Manager
	ctx := context.Background()

	var got testView
	assert.False(t, mgr.GetJSON(ctx, "tenant-1", "alerts:active", &got))
	mgr.SetJSON(ctx, "tenant-1", "alerts:active", testView{})
	mgr.InvalidateTenant(ctx, "tenant-1")
}
