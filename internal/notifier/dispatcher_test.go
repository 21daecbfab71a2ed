package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
)

func TestNotifyViolation_DispatchesBothChannels(t *testing.T) {
	var mu sync.Mutex
	received := []DispatchRequest{}
	done := make(chan struct{}, 2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/dispatch", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req DispatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		mu.Lock()
		received = append(received, req)
		mu.Unlock()

		json.NewEncoder(w).Encode(DispatchResponse{Accepted: true, MessageID: "msg-1"})
		done <- struct{}{}
	}))
	defer server.Close()

	patients := repository.NewMemoryPatientsRepo()
	require.NoError(t, patients.UpsertPatient(context.Background(), "tenant-1", &domain.Patient{
		PatientID:   "P001",
		TenantID:    "tenant-1",
		PatientName: "Dorothy Smith",
		Phone:       "+15550100",
	}))

	dispatcher := NewDispatcher(server.URL, "test-key", patients, zap.NewNop())

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	dispatcher.NotifyViolation("tenant-1", &domain.ViolationEvent{
		ViolationID: "VIO-1",
		TenantID:    "tenant-1",
		VisitID:     "V100",
		Kind:        domain.ViolationMissedClockIn,
		DetectedAt:  start.Add(16 * time.Minute),
	}, &domain.Visit{
		VisitID:        "V100",
		TenantID:       "tenant-1",
		CaregiverID:    "CG001",
		PatientID:      "P001",
		VisitDate:      "2026-03-02",
		ScheduledStart: start,
		ScheduledEnd:   start.Add(time.Hour),
	})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("dispatch did not reach the provider in time")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	channels := map[string]bool{}
	for _, req := range received {
		channels[req.Channel] = true
		assert.Equal(t, "VIO-1", req.ViolationID)
		assert.Equal(t, "+15550100", req.Phone)
		assert.Contains(t, req.Message, "Clock-In")
	}
	assert.True(t, channels[domain.ChannelSMS])
	assert.True(t, channels[domain.ChannelVoice])
}

func TestNotifyViolation_NoPhoneSkipsDispatch(t *testing.T) {
	calls := make(chan struct{}, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls <- struct{}{}
		json.NewEncoder(w).Encode(DispatchResponse{Accepted: true})
	}))
	defer server.Close()

	patients := repository.NewMemoryPatientsRepo()
	require.NoError(t, patients.UpsertPatient(context.Background(), "tenant-1", &domain.Patient{
		PatientID: "P001",
		TenantID:  "tenant-1",
	}))

	dispatcher := NewDispatcher(server.URL, "test-key", patients, zap.NewNop())
	dispatcher.NotifyViolation("tenant-1", &domain.ViolationEvent{
		ViolationID: "VIO-1",
		VisitID:     "V100",
		Kind:        domain.ViolationMissedBoth,
	}, &domain.Visit{VisitID: "V100", PatientID: "P001"})

	select {
	case <-calls:
		t.Fatal("dispatch should not happen without a phone number")
	case <-time.After(300 * time.Millisecond):
	}
}
