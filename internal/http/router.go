package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// methodOnly 方法不匹配时返回 405
func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterVisitRoutes 注册访视台账路由
func (r *Router) RegisterVisitRoutes(h *VisitHandler) {
	r.Handle("/evv/api/v1/visits", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			h.CreateVisit(w, req)
		case http.MethodGet:
			h.ListVisits(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// /evv/api/v1/visits/{id} 与 /evv/api/v1/visits/{id}/clock-in|clock-out
	r.Handle("/evv/api/v1/visits/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/evv/api/v1/visits/")
		parts := strings.Split(rest, "/")
		switch {
		case len(parts) == 1 && parts[0] != "":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.GetVisit(w, req, parts[0])
		case len(parts) == 2 && parts[0] != "" && parts[1] == "clock-in":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.ClockIn(w, req, parts[0])
		case len(parts) == 2 && parts[0] != "" && parts[1] == "clock-out":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.ClockOut(w, req, parts[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	// /evv/api/v1/days/{date}/close
	r.Handle("/evv/api/v1/days/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/evv/api/v1/days/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] != "close" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.CloseDay(w, req, parts[0])
	})
}

// RegisterAlertRoutes 注册告警路由
func (r *Router) RegisterAlertRoutes(h *AlertHandler) {
	r.Handle("/evv/api/v1/alerts/active", methodOnly(http.MethodGet, h.ActiveAlerts))
	r.Handle("/evv/api/v1/alerts/flagged", methodOnly(http.MethodGet, h.FlaggedAlerts))

	// /evv/api/v1/alerts/{id}/resolve|revert|seen|history
	r.Handle("/evv/api/v1/alerts/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/evv/api/v1/alerts/")
		parts := strings.Split(rest, "/")
		if len(parts) != 2 || parts[0] == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		alertID, action := parts[0], parts[1]
		switch action {
		case "resolve":
			methodOnly(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
				h.Resolve(w, req, alertID)
			})(w, req)
		case "revert":
			methodOnly(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
				h.Revert(w, req, alertID)
			})(w, req)
		case "seen":
			methodOnly(http.MethodPost, func(w http.ResponseWriter, req *http.Request) {
				h.MarkSeen(w, req, alertID)
			})(w, req)
		case "history":
			methodOnly(http.MethodGet, func(w http.ResponseWriter, req *http.Request) {
				h.History(w, req, alertID)
			})(w, req)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterOutreachRoutes 注册外呼路由
func (r *Router) RegisterOutreachRoutes(h *OutreachHandler) {
	r.Handle("/evv/api/v1/outreach/attempts", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			h.RecordAttempt(w, req)
		case http.MethodGet:
			h.ListAttempts(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.Handle("/evv/api/v1/outreach/callback", methodOnly(http.MethodPost, h.Callback))
}

// RegisterComplianceRoutes 注册合规指标路由
func (r *Router) RegisterComplianceRoutes(h *ComplianceHandler) {
	r.Handle("/evv/api/v1/compliance/snapshot", methodOnly(http.MethodGet, h.Snapshot))
	r.Handle("/evv/api/v1/compliance/rankings", methodOnly(http.MethodGet, h.Rankings))
	r.Handle("/evv/api/v1/compliance/daily", methodOnly(http.MethodGet, h.Daily))
	r.Handle("/evv/api/v1/compliance/trend", methodOnly(http.MethodGet, h.Trend))
	r.Handle("/evv/api/v1/compliance/report", methodOnly(http.MethodGet, h.WeeklyReport))
}

// RegisterPeopleRoutes 注册参考数据路由
func (r *Router) RegisterPeopleRoutes(h *PeopleHandler) {
	r.Handle("/evv/api/v1/caregivers", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPut:
			h.UpsertCaregiver(w, req)
		case http.MethodGet:
			h.ListCaregivers(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	r.Handle("/evv/api/v1/patients", methodOnly(http.MethodPut, h.UpsertPatient))
}
