package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"premier-care-hub/internal/domain"
)

// MemoryAlertsRepo in-memory alert store.
// Holds a reference to the violations repo so OpenAlert can write the
// violation and its alert inside one critical section, mirroring the
// single transaction the Postgres implementation uses.
type MemoryAlertsRepo struct {
	mu         sync.Mutex
	alerts     map[string]domain.Alert        // tenantID/alertID -> Alert
	actions    map[string][]domain.AlertAction // tenantID/alertID -> actions (acted_at asc)
	violations *MemoryViolationsRepo
}

func NewMemoryAlertsRepo(violations *MemoryViolationsRepo) *MemoryAlertsRepo {
	return &MemoryAlertsRepo{
		alerts:     map[string]domain.Alert{},
		actions:    map[string][]domain.AlertAction{},
		violations: violations,
	}
}

func (r *MemoryAlertsRepo) OpenAlert(_ context.Context, tenantID string, violation *domain.ViolationEvent, alert *domain.Alert) error {
	if violation == nil || alert == nil {
		return fmt.Errorf("violation and alert are required")
	}
	if alert.ViolationID != violation.ViolationID {
		return fmt.Errorf("alert does not reference the violation: alert_violation_id=%s violation_id=%s",
			alert.ViolationID, violation.ViolationID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.violations.ViolationExists(context.Background(), tenantID, violation.VisitID, violation.Kind)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("violation already recorded: visit_id=%s kind=%s", violation.VisitID, violation.Kind)
	}

	r.violations.put(violation)
	r.alerts[memKey(tenantID, alert.AlertID)] = *alert
	return nil
}

func (r *MemoryAlertsRepo) GetAlert(_ context.Context, tenantID, alertID string) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[memKey(tenantID, alertID)]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	out := cloneAlert(&a)
	return &out, nil
}

func (r *MemoryAlertsRepo) GetAlertByViolation(_ context.Context, tenantID, violationID string) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.alerts {
		if a.TenantID == tenantID && a.ViolationID == violationID {
			out := cloneAlert(&a)
			return &out, nil
		}
	}
	return nil, domain.ErrAlertNotFound
}

func (r *MemoryAlertsRepo) ListAlertsByStatus(_ context.Context, tenantID, status string) ([]*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Alert{}
	for _, a := range r.alerts {
		if a.TenantID != tenantID || a.AlertStatus != status {
			continue
		}
		c := cloneAlert(&a)
		out = append(out, &c)
	}
	sortAlertsByCreated(out)
	return out, nil
}

func (r *MemoryAlertsRepo) ListResolvedOn(_ context.Context, tenantID, date string) ([]*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Alert{}
	for _, a := range r.alerts {
		if a.TenantID != tenantID || a.AlertStatus != domain.AlertStatusResolved || a.ResolvedAt == nil {
			continue
		}
		if a.ResolvedAt.Format(domain.DateLayout) != date {
			continue
		}
		c := cloneAlert(&a)
		out = append(out, &c)
	}
	sortAlertsByCreated(out)
	return out, nil
}

func (r *MemoryAlertsRepo) ResolveAlert(_ context.Context, tenantID, alertID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memKey(tenantID, alertID)
	a, ok := r.alerts[k]
	if !ok {
		return false, domain.ErrAlertNotFound
	}
	if a.AlertStatus != domain.AlertStatusOpen {
		return false, nil
	}
	t := now
	a.AlertStatus = domain.AlertStatusResolved
	a.ResolvedAt = &t
	a.IsNew = false
	a.UpdatedAt = now
	r.alerts[k] = a
	r.appendAction(tenantID, alertID, domain.AlertActionResolve, now)
	return true, nil
}

func (r *MemoryAlertsRepo) RevertAlert(_ context.Context, tenantID, alertID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memKey(tenantID, alertID)
	a, ok := r.alerts[k]
	if !ok {
		return false, domain.ErrAlertNotFound
	}
	if a.AlertStatus != domain.AlertStatusResolved {
		return false, nil
	}
	a.AlertStatus = domain.AlertStatusOpen
	a.ResolvedAt = nil
	a.UpdatedAt = now
	r.alerts[k] = a
	r.appendAction(tenantID, alertID, domain.AlertActionRevert, now)
	return true, nil
}

func (r *MemoryAlertsRepo) MarkSeen(_ context.Context, tenantID, alertID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memKey(tenantID, alertID)
	a, ok := r.alerts[k]
	if !ok {
		return domain.ErrAlertNotFound
	}
	a.IsNew = false
	a.UpdatedAt = time.Now()
	r.alerts[k] = a
	return nil
}

func (r *MemoryAlertsRepo) ListActions(_ context.Context, tenantID, alertID string) ([]*domain.AlertAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acts := r.actions[memKey(tenantID, alertID)]
	out := make([]*domain.AlertAction, 0, len(acts))
	for i := range acts {
		c := acts[i]
		out = append(out, &c)
	}
	return out, nil
}

func (r *MemoryAlertsRepo) appendAction(tenantID, alertID, action string, actedAt time.Time) {
	k := memKey(tenantID, alertID)
	r.actions[k] = append(r.actions[k], domain.AlertAction{
		ActionID: uuid.New().String(),
		TenantID: tenantID,
		AlertID:  alertID,
		Action:   action,
		ActedAt:  actedAt,
	})
}

func cloneAlert(a *domain.Alert) domain.Alert {
	out := *a
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		out.ResolvedAt = &t
	}
	return out
}

func sortAlertsByCreated(alerts []*domain.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
		}
		return alerts[i].AlertID < alerts[j].AlertID
	})
}
