package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
	"premier-care-hub/internal/service"
)

type apiFixture struct {
	router     *Router
	visits     *repository.MemoryVisitsRepo
	violations *repository.MemoryViolationsRepo
	alerts     *repository.MemoryAlertsRepo
	outreach   *repository.MemoryOutreachRepo
	caregivers *repository.MemoryCaregiversRepo
	patients   *repository.MemoryPatientsRepo
	alertSvc   *service.AlertService
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := zap.NewNop()
	f := &apiFixture{
		visits:     repository.NewMemoryVisitsRepo(),
		violations: repository.NewMemoryViolationsRepo(),
		outreach:   repository.NewMemoryOutreachRepo(),
		caregivers: repository.NewMemoryCaregiversRepo(),
		patients:   repository.NewMemoryPatientsRepo(),
	}
	f.alerts = repository.NewMemoryAlertsRepo(f.violations)

	ledgerSvc := service.NewLedgerService(f.visits, logger)
	f.alertSvc = service.NewAlertService(f.alerts, f.violations, nil, logger)
	outreachSvc := service.NewOutreachService(f.outreach, f.violations, f.visits, f.patients, logger)
	complianceSvc := service.NewComplianceService(f.visits, f.outreach, nil,
		service.Tolerances{In: 15 * time.Minute, Out: 15 * time.Minute}, logger)
	viewsSvc := service.NewViewsService(f.alerts, f.violations, f.visits, f.caregivers, f.patients, f.outreach, nil, logger)

	f.router = NewRouter(logger)
	f.router.RegisterVisitRoutes(NewVisitHandler(ledgerSvc, logger))
	f.router.RegisterAlertRoutes(NewAlertHandler(f.alertSvc, viewsSvc, logger))
	f.router.RegisterOutreachRoutes(NewOutreachHandler(outreachSvc, nil, "", logger))
	f.router.RegisterComplianceRoutes(NewComplianceHandler(complianceSvc, logger))
	f.router.RegisterPeopleRoutes(NewPeopleHandler(f.caregivers, f.patients, logger))
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Tenant-Id", "tenant-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()

	var envelope struct {
		Code    int             `json:"code"`
		Type    string          `json:"type"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, ResultSuccess, envelope.Code, "message: %s", envelope.Message)
	if dest != nil {
		require.NoError(t, json.Unmarshal(envelope.Result, dest))
	}
}

func (f *apiFixture) createVisit(t *testing.T, visitID string, start time.Time) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/evv/api/v1/visits", service.CreateVisitRequest{
		VisitID:        visitID,
		CaregiverID:    "CG001",
		PatientID:      "P001",
		VisitDate:      start.Format(domain.DateLayout),
		ScheduledStart: start,
		ScheduledEnd:   start.Add(time.Hour),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestVisitAPI_ClockLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f.createVisit(t, "V100", start)

	ts := start.Add(5 * time.Minute)
	rec := f.do(t, http.MethodPost, "/evv/api/v1/visits/V100/clock-in", clockEventRequest{Timestamp: ts})
	require.Equal(t, http.StatusOK, rec.Code)

	var visit domain.Visit
	decodeResult(t, rec, &visit)
	require.NotNil(t, visit.ActualClockIn)
	assert.True(t, visit.ActualClockIn.Equal(ts))

	// Identical replay succeeds, conflicting time is rejected with 409
	rec = f.do(t, http.MethodPost, "/evv/api/v1/visits/V100/clock-in", clockEventRequest{Timestamp: ts})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/evv/api/v1/visits/V100/clock-in", clockEventRequest{Timestamp: ts.Add(time.Minute)})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown visit is 404
	rec = f.do(t, http.MethodPost, "/evv/api/v1/visits/missing/clock-in", clockEventRequest{Timestamp: ts})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Day close blocks further clock events
	rec = f.do(t, http.MethodPost, "/evv/api/v1/days/2026-03-02/close", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/evv/api/v1/visits/V100/clock-out", clockEventRequest{Timestamp: start.Add(time.Hour)})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestVisitAPI_RequiresTenantHeader(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/evv/api/v1/visits?date=2026-03-02", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertAPI_ResolveRevertFlow(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f.createVisit(t, "V100", start)

	alert, err := f.alertSvc.OpenAlertForViolation(context.Background(), "tenant-1", "V100",
		domain.ViolationMissedClockIn, start.Add(16*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, alert)

	// Active board shows the open alert with joined context
	rec := f.do(t, http.MethodGet, "/evv/api/v1/alerts/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []service.AlertView
	decodeResult(t, rec, &views)
	require.Len(t, views, 1)
	assert.Equal(t, "Clock-In", views[0].MissedType)
	assert.True(t, views[0].IsNew)

	// Resolve, second resolve conflicts, revert reopens
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/evv/api/v1/alerts/%s/resolve", alert.AlertID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/evv/api/v1/alerts/%s/resolve", alert.AlertID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Resolved alert shows up in the flagged-today board
	rec = f.do(t, http.MethodGet, "/evv/api/v1/alerts/flagged?date="+time.Now().Format(domain.DateLayout), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeResult(t, rec, &views)
	require.Len(t, views, 1)
	assert.NotNil(t, views[0].ResolvedAt)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/evv/api/v1/alerts/%s/revert", alert.AlertID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/evv/api/v1/alerts/%s/history", alert.AlertID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var actions []domain.AlertAction
	decodeResult(t, rec, &actions)
	require.Len(t, actions, 2)
	assert.Equal(t, domain.AlertActionResolve, actions[0].Action)
	assert.Equal(t, domain.AlertActionRevert, actions[1].Action)
}

func TestOutreachAPI_RecordAndList(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f.createVisit(t, "V100", start)

	rec := f.do(t, http.MethodPut, "/evv/api/v1/patients", domain.Patient{
		PatientID: "P001", PatientName: "Dorothy Smith", Phone: "+15550100",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	alert, err := f.alertSvc.OpenAlertForViolation(context.Background(), "tenant-1", "V100",
		domain.ViolationMissedClockIn, start.Add(16*time.Minute))
	require.NoError(t, err)

	reached := true
	rec = f.do(t, http.MethodPost, "/evv/api/v1/outreach/attempts", service.RecordAttemptRequest{
		ViolationID:    alert.ViolationID,
		Channel:        domain.ChannelSMS,
		SentAt:         start.Add(20 * time.Minute),
		Delivered:      true,
		PatientReached: &reached,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Unknown violation rejected
	rec = f.do(t, http.MethodPost, "/evv/api/v1/outreach/attempts", service.RecordAttemptRequest{
		ViolationID: "missing",
		Channel:     domain.ChannelSMS,
		SentAt:      start,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/evv/api/v1/outreach/attempts?violation_id="+alert.ViolationID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var attempts []domain.OutreachAttempt
	decodeResult(t, rec, &attempts)
	require.Len(t, attempts, 1)

	// Reachability propagated to the patient record
	patient, err := f.patients.GetPatient(context.Background(), "tenant-1", "P001")
	require.NoError(t, err)
	assert.True(t, patient.Reachable)
}

func TestOutreachAPI_CallbackWithoutStreamRecordsDirectly(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f.createVisit(t, "V100", start)

	alert, err := f.alertSvc.OpenAlertForViolation(context.Background(), "tenant-1", "V100",
		domain.ViolationMissedClockIn, start.Add(16*time.Minute))
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/evv/api/v1/outreach/callback", map[string]any{
		"violation_id": alert.ViolationID,
		"channel":      domain.ChannelVoice,
		"sent_at":      start.Add(20 * time.Minute),
		"delivered":    true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	attempts, err := f.outreach.ListAttemptsByViolation(context.Background(), "tenant-1", alert.ViolationID)
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, domain.ChannelVoice, attempts[0].Channel)

	// Payload without identifiers is rejected
	rec = f.do(t, http.MethodPost, "/evv/api/v1/outreach/callback", map[string]any{"delivered": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVisitAPI_ListByWeek(t *testing.T) {
	f := newAPIFixture(t)
	f.createVisit(t, "V100", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	f.createVisit(t, "V101", time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC))
	f.createVisit(t, "V102", time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)) // next week

	rec := f.do(t, http.MethodGet, "/evv/api/v1/visits?week_start=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var visits []domain.Visit
	decodeResult(t, rec, &visits)
	require.Len(t, visits, 2)
	assert.Equal(t, "V100", visits[0].VisitID)
	assert.Equal(t, "V101", visits[1].VisitID)
}

func TestComplianceAPI_SnapshotAndRankings(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Two visits, one fully clocked in/out on time, one untouched
	f.createVisit(t, "V100", start)
	f.createVisit(t, "V101", start)
	rec := f.do(t, http.MethodPost, "/evv/api/v1/visits/V100/clock-in", clockEventRequest{Timestamp: start.Add(5 * time.Minute)})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/evv/api/v1/visits/V100/clock-out", clockEventRequest{Timestamp: start.Add(time.Hour)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/evv/api/v1/compliance/snapshot?scope=day&date=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot domain.ComplianceSnapshot
	decodeResult(t, rec, &snapshot)
	assert.Equal(t, 2, snapshot.ScheduledVisits)
	assert.Equal(t, 1, snapshot.CompletedVisits)
	assert.Equal(t, 50.0, snapshot.EVVCompliance)
	assert.Equal(t, 50.0, snapshot.ClockInSuccessRate)

	rec = f.do(t, http.MethodGet, "/evv/api/v1/compliance/rankings?week_start=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rankings []struct {
		CaregiverID       string  `json:"caregiver_id"`
		OverallCompliance float64 `json:"overall_compliance"`
		Rank              int     `json:"rank"`
		Band              string  `json:"band"`
	}
	decodeResult(t, rec, &rankings)
	require.Len(t, rankings, 1)
	assert.Equal(t, "CG001", rankings[0].CaregiverID)
	assert.Equal(t, 1, rankings[0].Rank)
	assert.Equal(t, domain.BandNeedsAttention, rankings[0].Band)
}

func TestComplianceAPI_WeeklyReportDownload(t *testing.T) {
	f := newAPIFixture(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f.createVisit(t, "V100", start)

	rec := f.do(t, http.MethodGet, "/evv/api/v1/compliance/report?week_start=2026-03-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "compliance-2026-03-02.xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())
}
