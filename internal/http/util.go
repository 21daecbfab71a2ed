package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"premier-care-hub/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// tenantIDFromReq 从 X-Tenant-Id 头提取租户
func tenantIDFromReq(r *http.Request) string {
	return r.Header.Get("X-Tenant-Id")
}

// writeError 把领域错误映射为 HTTP 状态码
// NotFound 类 → 404；非法状态转换/冲突/封账 → 409；其余 → 400
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrVisitNotFound),
		errors.Is(err, domain.ErrViolationNotFound),
		errors.Is(err, domain.ErrAlertNotFound),
		errors.Is(err, domain.ErrCaregiverNotFound),
		errors.Is(err, domain.ErrPatientNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrNotResolved),
		errors.Is(err, domain.ErrClockConflict),
		errors.Is(err, domain.ErrDayClosed):
		status = http.StatusConflict
	}
	writeJSON(w, status, Fail(err.Error()))
}

// requireTenant 校验租户头；缺失时写 400 并返回 false
func requireTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := tenantIDFromReq(r)
	if tenantID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("X-Tenant-Id header is required"))
		return "", false
	}
	return tenantID, true
}
