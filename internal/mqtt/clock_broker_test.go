package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
	"premier-care-hub/internal/service"
)

func newBrokerFixture(t *testing.T) (*repository.MemoryVisitsRepo, *ClockBroker) {
	t.Helper()

	visits := repository.NewMemoryVisitsRepo()
	ledger := service.NewLedgerService(visits, zap.NewNop())
	broker := NewClockBroker(nil, ledger, "tenant-1", "evv/+/clock", 1, zap.NewNop())

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, visits.CreateVisit(context.Background(), "tenant-1", &domain.Visit{
		VisitID:        "V100",
		TenantID:       "tenant-1",
		CaregiverID:    "CG001",
		PatientID:      "P001",
		VisitDate:      "2026-03-02",
		ScheduledStart: start,
		ScheduledEnd:   start.Add(time.Hour),
	}))
	return visits, broker
}

func clockPayload(t *testing.T, visitID, kind string, ts time.Time) []byte {
	t.Helper()

	data, err := json.Marshal(ClockEvent{VisitID: visitID, Kind: kind, Timestamp: ts.Unix()})
	require.NoError(t, err)
	return data
}

func TestHandleMessage_RecordsClockIn(t *testing.T) {
	visits, broker := newBrokerFixture(t)

	ts := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	err := broker.handleMessage("evv/tenant-1/clock", clockPayload(t, "V100", "clock_in", ts))
	require.NoError(t, err)

	visit, err := visits.GetVisit(context.Background(), "tenant-1", "V100")
	require.NoError(t, err)
	require.NotNil(t, visit.ActualClockIn)
	assert.True(t, visit.ActualClockIn.Equal(ts))
}

func TestHandleMessage_DuplicateReplayIsSilent(t *testing.T) {
	_, broker := newBrokerFixture(t)

	ts := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	payload := clockPayload(t, "V100", "clock_in", ts)

	require.NoError(t, broker.handleMessage("evv/tenant-1/clock", payload))
	require.NoError(t, broker.handleMessage("evv/tenant-1/clock", payload))
}

func TestHandleMessage_ConflictIsLoggedNotErrored(t *testing.T) {
	visits, broker := newBrokerFixture(t)

	ts := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	require.NoError(t, broker.handleMessage("evv/tenant-1/clock", clockPayload(t, "V100", "clock_in", ts)))

	// Device re-reports a different time; first write stands
	err := broker.handleMessage("evv/tenant-1/clock", clockPayload(t, "V100", "clock_in", ts.Add(10*time.Minute)))
	require.NoError(t, err)

	visit, err := visits.GetVisit(context.Background(), "tenant-1", "V100")
	require.NoError(t, err)
	assert.True(t, visit.ActualClockIn.Equal(ts))
}

func TestHandleMessage_OtherTenantIgnored(t *testing.T) {
	visits, broker := newBrokerFixture(t)

	ts := time.Date(2026, 3, 2, 9, 5, 0, 0, time.UTC)
	err := broker.handleMessage("evv/tenant-2/clock", clockPayload(t, "V100", "clock_in", ts))
	require.NoError(t, err)

	visit, err := visits.GetVisit(context.Background(), "tenant-1", "V100")
	require.NoError(t, err)
	assert.Nil(t, visit.ActualClockIn)
}

func TestHandleMessage_RejectsMalformedInput(t *testing.T) {
	_, broker := newBrokerFixture(t)

	assert.Error(t, broker.handleMessage("evv/tenant-1/clock", []byte("not json")))
	assert.Error(t, broker.handleMessage("evv/tenant-1/clock", clockPayload(t, "", "clock_in", time.Now())))
	assert.Error(t, broker.handleMessage("evv/tenant-1/clock", clockPayload(t, "V100", "pause", time.Now())))
	assert.Error(t, broker.handleMessage("bad/topic", clockPayload(t, "V100", "clock_in", time.Now())))
}
