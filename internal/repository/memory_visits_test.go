package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"premier-care-hub/internal/domain"
)

func seedVisit(t *testing.T, repo *MemoryVisitsRepo, visitID, date string, start time.Time) {
	t.Helper()

	require.NoError(t, repo.CreateVisit(context.Background(), "tenant-1", &domain.Visit{
		VisitID:        visitID,
		TenantID:       "tenant-1",
		CaregiverID:    "CG001",
		PatientID:      "P001",
		VisitDate:      date,
		ScheduledStart: start,
		ScheduledEnd:   start.Add(time.Hour),
	}))
}

func TestSetClockIn_OnlyFirstWriteWins(t *testing.T) {
	repo := NewMemoryVisitsRepo()
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	seedVisit(t, repo, "V100", "2026-03-02", start)

	first := start.Add(5 * time.Minute)
	updated, err := repo.SetClockIn(ctx, "tenant-1", "V100", first)
	require.NoError(t, err)
	assert.True(t, updated)

	// Later write does not overwrite the recorded time
	updated, err = repo.SetClockIn(ctx, "tenant-1", "V100", start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.False(t, updated)

	visit, err := repo.GetVisit(ctx, "tenant-1", "V100")
	require.NoError(t, err)
	require.NotNil(t, visit.ActualClockIn)
	assert.True(t, visit.ActualClockIn.Equal(first))
}

func TestSetClockIn_MissingVisit(t *testing.T) {
	repo := NewMemoryVisitsRepo()

	_, err := repo.SetClockIn(context.Background(), "tenant-1", "missing", time.Now())
	assert.ErrorIs(t, err, domain.ErrVisitNotFound)
}

func TestListVisitsByDateRange_SortedAndScoped(t *testing.T) {
	repo := NewMemoryVisitsRepo()
	ctx := context.Background()

	d2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedVisit(t, repo, "V101", "2026-03-02", d2.Add(11*time.Hour))
	seedVisit(t, repo, "V100", "2026-03-02", d2.Add(9*time.Hour))
	seedVisit(t, repo, "V200", "2026-03-03", d2.Add(33*time.Hour))
	seedVisit(t, repo, "V300", "2026-03-05", d2.Add(81*time.Hour))

	// Range is inclusive on both ends
	visits, err := repo.ListVisitsByDateRange(ctx, "tenant-1", "2026-03-02", "2026-03-03")
	require.NoError(t, err)
	require.Len(t, visits, 3)
	assert.Equal(t, "V100", visits[0].VisitID)
	assert.Equal(t, "V101", visits[1].VisitID)
	assert.Equal(t, "V200", visits[2].VisitID)

	// Other tenants never leak in
	visits, err = repo.ListVisitsByDateRange(ctx, "tenant-2", "2026-03-02", "2026-03-05")
	require.NoError(t, err)
	assert.Empty(t, visits)
}

func TestCloseDay_Idempotent(t *testing.T) {
	repo := NewMemoryVisitsRepo()
	ctx := context.Background()

	closed, err := repo.IsDayClosed(ctx, "tenant-1", "2026-03-02")
	require.NoError(t, err)
	assert.False(t, closed)

	require.NoError(t, repo.CloseDay(ctx, "tenant-1", "2026-03-02"))
	require.NoError(t, repo.CloseDay(ctx, "tenant-1", "2026-03-02"))

	closed, err = repo.IsDayClosed(ctx, "tenant-1", "2026-03-02")
	require.NoError(t, err)
	assert.True(t, closed)
}

func TestGetVisit_ReturnsCopy(t *testing.T) {
	repo := NewMemoryVisitsRepo()
	ctx := context.Background()

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	seedVisit(t, repo, "V100", "2026-03-02", start)

	v1, err := repo.GetVisit(ctx, "tenant-1", "V100")
	require.NoError(t, err)
	v1.CaregiverID = "mutated"

	v2, err := repo.GetVisit(ctx, "tenant-1", "V100")
	require.NoError(t, err)
	assert.Equal(t, "CG001", v2.CaregiverID)
}
