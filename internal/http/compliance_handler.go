package httpapi

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/service"
)

// ComplianceHandler 合规指标接口
type ComplianceHandler struct {
	complianceSvc *service.ComplianceService
	logger        *zap.Logger
}

// NewComplianceHandler 创建合规接口
func NewComplianceHandler(complianceSvc *service.ComplianceService, logger *zap.Logger) *ComplianceHandler {
	return &ComplianceHandler{complianceSvc: complianceSvc, logger: logger}
}

// Snapshot GET /evv/api/v1/compliance/snapshot?scope=day&date=2026-03-02
func (h *ComplianceHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	scope := domain.Scope{
		Kind: r.URL.Query().Get("scope"),
		Date: r.URL.Query().Get("date"),
	}
	if scope.Kind == "" {
		scope.Kind = domain.ScopeDay
	}

	snapshot, err := h.complianceSvc.Snapshot(r.Context(), tenantID, scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(snapshot))
}

// rankingItem 排行行 + 展示分档
type rankingItem struct {
	*domain.CaregiverRanking
	Band string `json:"band"`
}

// Rankings GET /evv/api/v1/compliance/rankings?week_start=2026-03-02
func (h *ComplianceHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	weekStart := r.URL.Query().Get("week_start")
	if weekStart == "" {
		writeJSON(w, http.StatusBadRequest, Fail("week_start query parameter is required"))
		return
	}

	rankings, err := h.complianceSvc.Rankings(r.Context(), tenantID, weekStart)
	if err != nil {
		writeError(w, err)
		return
	}

	items := make([]rankingItem, 0, len(rankings))
	for _, ranking := range rankings {
		items = append(items, rankingItem{
			CaregiverRanking: ranking,
			Band:             service.Band(ranking.OverallCompliance),
		})
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// Daily GET /evv/api/v1/compliance/daily?week_start=2026-03-02
func (h *ComplianceHandler) Daily(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	weekStart := r.URL.Query().Get("week_start")
	if weekStart == "" {
		writeJSON(w, http.StatusBadRequest, Fail("week_start query parameter is required"))
		return
	}

	days, err := h.complianceSvc.DailyBreakdown(r.Context(), tenantID, weekStart)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(days))
}

// Trend GET /evv/api/v1/compliance/trend?week_start=2026-03-02&weeks=4
func (h *ComplianceHandler) Trend(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	weekStart := r.URL.Query().Get("week_start")
	if weekStart == "" {
		writeJSON(w, http.StatusBadRequest, Fail("week_start query parameter is required"))
		return
	}
	weeks := parseInt(r.URL.Query().Get("weeks"), 4)

	points, err := h.complianceSvc.WeeklyTrend(r.Context(), tenantID, weekStart, weeks)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(points))
}

// WeeklyReport GET /evv/api/v1/compliance/report?week_start=2026-03-02
// 导出周合规 Excel 报表
func (h *ComplianceHandler) WeeklyReport(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	weekStart := r.URL.Query().Get("week_start")
	if weekStart == "" {
		writeJSON(w, http.StatusBadRequest, Fail("week_start query parameter is required"))
		return
	}

	snapshot, err := h.complianceSvc.Snapshot(r.Context(), tenantID, domain.Scope{Kind: domain.ScopeWeek, Date: weekStart})
	if err != nil {
		writeError(w, err)
		return
	}
	rankings, err := h.complianceSvc.Rankings(r.Context(), tenantID, weekStart)
	if err != nil {
		writeError(w, err)
		return
	}
	days, err := h.complianceSvc.DailyBreakdown(r.Context(), tenantID, weekStart)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := GenerateWeeklyReport(weekStart, snapshot, rankings, days)
	if err != nil {
		h.logger.Error("failed to generate weekly report", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate report"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="compliance-%s.xlsx"`, weekStart))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
