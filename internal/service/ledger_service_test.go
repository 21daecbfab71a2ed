package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
)

func newLedgerFixture(t *testing.T) (*repository.MemoryVisitsRepo, *LedgerService) {
	t.Helper()

	visits := repository.NewMemoryVisitsRepo()
	return visits, NewLedgerService(visits, zap.NewNop())
}

func createVisit(t *testing.T, svc *LedgerService, visitID string, start time.Time) {
	t.Helper()

	_, err := svc.CreateVisit(context.Background(), "tenant-1", CreateVisitRequest{
		VisitID:        visitID,
		CaregiverID:    "CG001",
		PatientID:      "P001",
		VisitDate:      start.Format(domain.DateLayout),
		ScheduledStart: start,
		ScheduledEnd:   start.Add(time.Hour),
	})
	require.NoError(t, err)
}

func TestCreateVisit_Validation(t *testing.T) {
	_, svc := newLedgerFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, err := svc.CreateVisit(ctx, "tenant-1", CreateVisitRequest{
		VisitID: "V1", CaregiverID: "CG001", PatientID: "P001",
		VisitDate: "03/02/2026", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour),
	})
	assert.Error(t, err)

	_, err = svc.CreateVisit(ctx, "tenant-1", CreateVisitRequest{
		VisitID: "V1", CaregiverID: "CG001", PatientID: "P001",
		VisitDate: "2026-03-02", ScheduledStart: start.Add(time.Hour), ScheduledEnd: start,
	})
	assert.Error(t, err)
}

func TestRecordClockIn_ReplaySemantics(t *testing.T) {
	_, svc := newLedgerFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	createVisit(t, svc, "V100", start)

	ts := start.Add(5 * time.Minute)
	require.NoError(t, svc.RecordClockIn(ctx, "tenant-1", "V100", ts))

	// Identical replay is a silent no-op (at-least-once delivery)
	require.NoError(t, svc.RecordClockIn(ctx, "tenant-1", "V100", ts))

	// Different timestamp is a true duplicate and is rejected
	err := svc.RecordClockIn(ctx, "tenant-1", "V100", ts.Add(time.Minute))
	assert.ErrorIs(t, err, domain.ErrClockConflict)

	// Unknown visit
	err = svc.RecordClockIn(ctx, "tenant-1", "missing", ts)
	assert.ErrorIs(t, err, domain.ErrVisitNotFound)
}

func TestRecordClock_DayClosedRejected(t *testing.T) {
	_, svc := newLedgerFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	createVisit(t, svc, "V100", start)

	require.NoError(t, svc.CloseDay(ctx, "tenant-1", "2026-03-02"))

	err := svc.RecordClockIn(ctx, "tenant-1", "V100", start)
	assert.ErrorIs(t, err, domain.ErrDayClosed)
	err = svc.RecordClockOut(ctx, "tenant-1", "V100", start.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrDayClosed)

	// New schedules on a closed day are also rejected
	_, err = svc.CreateVisit(ctx, "tenant-1", CreateVisitRequest{
		VisitID: "V101", CaregiverID: "CG001", PatientID: "P001",
		VisitDate: "2026-03-02", ScheduledStart: start, ScheduledEnd: start.Add(time.Hour),
	})
	assert.ErrorIs(t, err, domain.ErrDayClosed)
}

func TestRecordClockIn_ConcurrentSameVisit(t *testing.T) {
	visits, svc := newLedgerFixture(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	createVisit(t, svc, "V100", start)

	// Same event from HTTP and MQTT at once: both succeed, state is consistent
	ts := start.Add(5 * time.Minute)
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.RecordClockIn(ctx, "tenant-1", "V100", ts)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	visit, err := visits.GetVisit(ctx, "tenant-1", "V100")
	require.NoError(t, err)
	require.NotNil(t, visit.ActualClockIn)
	assert.True(t, visit.ActualClockIn.Equal(ts))
}
