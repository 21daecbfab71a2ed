package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/redis"
	"premier-care-hub/internal/repository"
	"premier-care-hub/internal/service"
)

type consumerFixture struct {
	client   *goredis.Client
	outreach *repository.MemoryOutreachRepo
	patients *repository.MemoryPatientsRepo
	consumer *DeliveryConsumer
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ctx := context.Background()
	visits := repository.NewMemoryVisitsRepo()
	violations := repository.NewMemoryViolationsRepo()
	alerts := repository.NewMemoryAlertsRepo(violations)
	outreach := repository.NewMemoryOutreachRepo()
	patients := repository.NewMemoryPatientsRepo()

	require.NoError(t, visits.CreateVisit(ctx, "tenant-1", &domain.Visit{
		VisitID:        "V100",
		TenantID:       "tenant-1",
		CaregiverID:    "CG001",
		PatientID:      "P001",
		VisitDate:      "2026-03-02",
		ScheduledStart: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, patients.UpsertPatient(ctx, "tenant-1", &domain.Patient{
		PatientID: "P001", TenantID: "tenant-1", PatientName: "Dorothy Smith", Phone: "+15550100",
	}))
	require.NoError(t, alerts.OpenAlert(ctx, "tenant-1", &domain.ViolationEvent{
		ViolationID: "VIO-1",
		TenantID:    "tenant-1",
		VisitID:     "V100",
		Kind:        domain.ViolationMissedClockIn,
		DetectedAt:  time.Now(),
	}, &domain.Alert{
		AlertID: "AL-1", TenantID: "tenant-1", ViolationID: "VIO-1",
		AlertStatus: domain.AlertStatusOpen, IsNew: true,
	}))

	outreachSvc := service.NewOutreachService(outreach, violations, visits, patients, zap.NewNop())
	cons := NewDeliveryConsumer(client, outreachSvc, DeliveryConsumerConfig{
		TenantID:      "tenant-1",
		Stream:        "evv:outreach:delivery",
		ConsumerGroup: "evv-engine",
	}, zap.NewNop())

	return &consumerFixture{client: client, outreach: outreach, patients: patients, consumer: cons}
}

func TestDeliveryConsumer_RecordsAttemptAndReachability(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()

	sentAt := time.Date(2026, 3, 2, 9, 20, 0, 0, time.UTC)
	_, err := redis.PublishToStream(ctx, f.client, "evv:outreach:delivery", map[string]interface{}{
		"violation_id":    "VIO-1",
		"channel":         domain.ChannelSMS,
		"sent_at":         sentAt.Unix(),
		"delivered":       true,
		"patient_reached": true,
	})
	require.NoError(t, err)

	processed, err := f.consumer.HandleOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	attempts, err := f.outreach.ListAttemptsByViolation(ctx, "tenant-1", "VIO-1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, domain.ChannelSMS, attempts[0].Channel)
	assert.True(t, attempts[0].Delivered)
	assert.True(t, attempts[0].SentAt.Equal(sentAt))
	require.NotNil(t, attempts[0].PatientReached)
	assert.True(t, *attempts[0].PatientReached)

	patient, err := f.patients.GetPatient(ctx, "tenant-1", "P001")
	require.NoError(t, err)
	assert.True(t, patient.Reachable)
}

func TestDeliveryConsumer_PoisonMessageIsAcked(t *testing.T) {
	f := newConsumerFixture(t)
	ctx := context.Background()

	// Callback for a violation that does not exist
	_, err := redis.PublishToStream(ctx, f.client, "evv:outreach:delivery", map[string]interface{}{
		"violation_id": "missing",
		"channel":      domain.ChannelVoice,
		"delivered":    false,
	})
	require.NoError(t, err)

	processed, err := f.consumer.HandleOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	// Message was acked, nothing left pending for the group
	processed, err = f.consumer.HandleOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	attempts, err := f.outreach.ListAttemptsByViolation(ctx, "tenant-1", "missing")
	require.NoError(t, err)
	assert.Empty(t, attempts)
}
