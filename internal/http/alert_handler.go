package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"premier-care-hub/internal/service"
)

// AlertHandler 告警生命周期与看板接口
type AlertHandler struct {
	alertSvc *service.AlertService
	viewsSvc *service.ViewsService
	logger   *zap.Logger
}

// NewAlertHandler 创建告警接口
func NewAlertHandler(alertSvc *service.AlertService, viewsSvc *service.ViewsService, logger *zap.Logger) *AlertHandler {
	return &AlertHandler{alertSvc: alertSvc, viewsSvc: viewsSvc, logger: logger}
}

// ActiveAlerts GET /evv/api/v1/alerts/active
func (h *AlertHandler) ActiveAlerts(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	views, err := h.viewsSvc.ActiveAlertViews(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(views))
}

// FlaggedAlerts GET /evv/api/v1/alerts/flagged?date=2026-03-02
func (h *AlertHandler) FlaggedAlerts(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		writeJSON(w, http.StatusBadRequest, Fail("date query parameter is required"))
		return
	}

	views, err := h.viewsSvc.FlaggedTodayViews(r.Context(), tenantID, date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(views))
}

// Resolve POST /evv/api/v1/alerts/{id}/resolve
func (h *AlertHandler) Resolve(w http.ResponseWriter, r *http.Request, alertID string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	alert, err := h.alertSvc.Resolve(r.Context(), tenantID, alertID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(alert))
}

// Revert POST /evv/api/v1/alerts/{id}/revert
func (h *AlertHandler) Revert(w http.ResponseWriter, r *http.Request, alertID string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	alert, err := h.alertSvc.Revert(r.Context(), tenantID, alertID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(alert))
}

// MarkSeen POST /evv/api/v1/alerts/{id}/seen
func (h *AlertHandler) MarkSeen(w http.ResponseWriter, r *http.Request, alertID string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	if err := h.alertSvc.MarkSeen(r.Context(), tenantID, alertID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"alert_id": alertID, "is_new": "false"}))
}

// History GET /evv/api/v1/alerts/{id}/history
func (h *AlertHandler) History(w http.ResponseWriter, r *http.Request, alertID string) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	actions, err := h.alertSvc.History(r.Context(), tenantID, alertID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(actions))
}
