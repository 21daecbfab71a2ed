package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"premier-care-hub/internal/domain"
)

func newTestAlertsRepo() (*MemoryViolationsRepo, *MemoryAlertsRepo) {
	violations := NewMemoryViolationsRepo()
	return violations, NewMemoryAlertsRepo(violations)
}

func openTestAlert(t *testing.T, alerts *MemoryAlertsRepo, visitID, kind string) *domain.Alert {
	t.Helper()

	violation := &domain.ViolationEvent{
		ViolationID: "VIO-" + visitID + "-" + kind,
		TenantID:    "tenant-1",
		VisitID:     visitID,
		Kind:        kind,
		DetectedAt:  time.Now(),
	}
	alert := &domain.Alert{
		AlertID:     "AL-" + visitID + "-" + kind,
		TenantID:    "tenant-1",
		ViolationID: violation.ViolationID,
		AlertStatus: domain.AlertStatusOpen,
		IsNew:       true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, alerts.OpenAlert(context.Background(), "tenant-1", violation, alert))
	return alert
}

func TestOpenAlert_WritesViolationAndAlertTogether(t *testing.T) {
	violations, alerts := newTestAlertsRepo()
	ctx := context.Background()

	alert := openTestAlert(t, alerts, "V100", domain.ViolationMissedClockIn)

	got, err := alerts.GetAlertByViolation(ctx, "tenant-1", alert.ViolationID)
	require.NoError(t, err)
	assert.Equal(t, alert.AlertID, got.AlertID)

	exists, err := violations.ViolationExists(ctx, "tenant-1", "V100", domain.ViolationMissedClockIn)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOpenAlert_RejectsDuplicateKind(t *testing.T) {
	_, alerts := newTestAlertsRepo()
	ctx := context.Background()

	openTestAlert(t, alerts, "V100", domain.ViolationMissedClockIn)

	violation := &domain.ViolationEvent{
		ViolationID: "VIO-dup",
		TenantID:    "tenant-1",
		VisitID:     "V100",
		Kind:        domain.ViolationMissedClockIn,
		DetectedAt:  time.Now(),
	}
	alert := &domain.Alert{
		AlertID:     "AL-dup",
		TenantID:    "tenant-1",
		ViolationID: "VIO-dup",
		AlertStatus: domain.AlertStatusOpen,
		IsNew:       true,
	}

	err := alerts.OpenAlert(ctx, "tenant-1", violation, alert)
	assert.Error(t, err)

	_, err = alerts.GetAlert(ctx, "tenant-1", "AL-dup")
	assert.ErrorIs(t, err, domain.ErrAlertNotFound)
}

func TestResolveThenRevertThenResolve(t *testing.T) {
	_, alerts := newTestAlertsRepo()
	ctx := context.Background()

	alert := openTestAlert(t, alerts, "V100", domain.ViolationMissedClockOut)

	ok, err := alerts.ResolveAlert(ctx, "tenant-1", alert.AlertID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	// Second resolve on an already-resolved alert is refused
	ok, err = alerts.ResolveAlert(ctx, "tenant-1", alert.AlertID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = alerts.RevertAlert(ctx, "tenant-1", alert.AlertID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := alerts.GetAlert(ctx, "tenant-1", alert.AlertID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusOpen, got.AlertStatus)
	assert.Nil(t, got.ResolvedAt)

	ok, err = alerts.ResolveAlert(ctx, "tenant-1", alert.AlertID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	actions, err := alerts.ListActions(ctx, "tenant-1", alert.AlertID)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.Equal(t, domain.AlertActionResolve, actions[0].Action)
	assert.Equal(t, domain.AlertActionRevert, actions[1].Action)
	assert.Equal(t, domain.AlertActionResolve, actions[2].Action)
}

func TestConcurrentResolve_ExactlyOneWinner(t *testing.T) {
	_, alerts := newTestAlertsRepo()
	ctx := context.Background()

	alert := openTestAlert(t, alerts, "V100", domain.ViolationMissedBoth)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := alerts.ResolveAlert(ctx, "tenant-1", alert.AlertID, time.Now())
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for ok := range results {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	actions, err := alerts.ListActions(ctx, "tenant-1", alert.AlertID)
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

func TestMarkSeen_KeepsLifecycleState(t *testing.T) {
	_, alerts := newTestAlertsRepo()
	ctx := context.Background()

	alert := openTestAlert(t, alerts, "V100", domain.ViolationMissedClockIn)

	require.NoError(t, alerts.MarkSeen(ctx, "tenant-1", alert.AlertID))

	got, err := alerts.GetAlert(ctx, "tenant-1", alert.AlertID)
	require.NoError(t, err)
	assert.False(t, got.IsNew)
	assert.Equal(t, domain.AlertStatusOpen, got.AlertStatus)
}

func TestListResolvedOn_FiltersByDate(t *testing.T) {
	_, alerts := newTestAlertsRepo()
	ctx := context.Background()

	a1 := openTestAlert(t, alerts, "V100", domain.ViolationMissedClockIn)
	a2 := openTestAlert(t, alerts, "V101", domain.ViolationMissedClockIn)

	day1 := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	ok, err := alerts.ResolveAlert(ctx, "tenant-1", a1.AlertID, day1)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = alerts.ResolveAlert(ctx, "tenant-1", a2.AlertID, day2)
	require.NoError(t, err)
	require.True(t, ok)

	resolved, err := alerts.ListResolvedOn(ctx, "tenant-1", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, a1.AlertID, resolved[0].AlertID)
}
