package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/service"
)

// VisitHandler 访视台账接口
type VisitHandler struct {
	ledgerSvc *service.LedgerService
	logger    *zap.Logger
}

// NewVisitHandler 创建访视接口
func NewVisitHandler(ledgerSvc *service.LedgerService, logger *zap.Logger) *VisitHandler {
	return &VisitHandler{ledgerSvc: ledgerSvc, logger: logger}
}

// CreateVisit POST /evv/api/v1/visits
func (h *VisitHandler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req service.CreateVisitRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	visit, err := h.ledgerSvc.CreateVisit(r.Context(), tenantID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(visit))
}

// ListVisits GET /evv/api/v1/visits?date=2026-03-02 或 ?week_start=2026-03-02
func (h *VisitHandler) ListVisits(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	weekStart := r.URL.Query().Get("week_start")

	var visits []*domain.Visit
	var err error
	switch {
	case date != "":
		visits, err = h.ledgerSvc.ListVisitsByDate(r.Context(), tenantID, date)
	case weekStart != "":
		visits, err = h.ledgerSvc.ListVisitsByWeek(r.Context(), tenantID, weekStart)
	default:
		writeJSON(w, http.StatusBadRequest, Fail("date or week_start query parameter is required"))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(visits))
}

// GetVisit GET /evv/api/v1/visits/{id}
func (h *VisitHandler) GetVisit(w http.ResponseWriter, r *http.Request, visitID string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	visit, err := h.ledgerSvc.GetVisit(r.Context(), tenantID, visitID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(visit))
}

type clockEventRequest struct {
	Timestamp time.Time `json:"timestamp"`
}

// ClockIn POST /evv/api/v1/visits/{id}/clock-in
func (h *VisitHandler) ClockIn(w http.ResponseWriter, r *http.Request, visitID string) {
	h.recordClock(w, r, visitID, true)
}

// ClockOut POST /evv/api/v1/visits/{id}/clock-out
func (h *VisitHandler) ClockOut(w http.ResponseWriter, r *http.Request, visitID string) {
	h.recordClock(w, r, visitID, false)
}

func (h *VisitHandler) recordClock(w http.ResponseWriter, r *http.Request, visitID string, clockIn bool) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req clockEventRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}

	var err error
	if clockIn {
		err = h.ledgerSvc.RecordClockIn(r.Context(), tenantID, visitID, req.Timestamp)
	} else {
		err = h.ledgerSvc.RecordClockOut(r.Context(), tenantID, visitID, req.Timestamp)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	visit, err := h.ledgerSvc.GetVisit(r.Context(), tenantID, visitID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(visit))
}

// CloseDay POST /evv/api/v1/days/{date}/close
func (h *VisitHandler) CloseDay(w http.ResponseWriter, r *http.Request, date string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	if err := h.ledgerSvc.CloseDay(r.Context(), tenantID, date); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"date": date, "status": "closed"}))
}
