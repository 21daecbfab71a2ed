package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"premier-care-hub/internal/domain"
)

// MemoryVisitsRepo supports running the engine without a database (local dev / tests).
type MemoryVisitsRepo struct {
	mu         sync.RWMutex
	visits     map[string]domain.Visit // tenantID/visitID -> Visit
	closedDays map[string]bool         // tenantID/date -> closed
}

func NewMemoryVisitsRepo() *MemoryVisitsRepo {
	return &MemoryVisitsRepo{
		visits:     map[string]domain.Visit{},
		closedDays: map[string]bool{},
	}
}

func memKey(tenantID, id string) string {
	return tenantID + "/" + id
}

func (r *MemoryVisitsRepo) CreateVisit(_ context.Context, tenantID string, visit *domain.Visit) error {
	if tenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if visit == nil {
		return fmt.Errorf("visit is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := memKey(tenantID, visit.VisitID)
	if _, ok := r.visits[k]; ok {
		return fmt.Errorf("visit already exists: visit_id=%s", visit.VisitID)
	}
	r.visits[k] = cloneVisit(visit)
	return nil
}

func (r *MemoryVisitsRepo) GetVisit(_ context.Context, tenantID, visitID string) (*domain.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.visits[memKey(tenantID, visitID)]
	if !ok {
		return nil, domain.ErrVisitNotFound
	}
	out := cloneVisit(&v)
	return &out, nil
}

func (r *MemoryVisitsRepo) SetClockIn(_ context.Context, tenantID, visitID string, ts time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memKey(tenantID, visitID)
	v, ok := r.visits[k]
	if !ok {
		return false, domain.ErrVisitNotFound
	}
	if v.ActualClockIn != nil {
		return false, nil
	}
	t := ts
	v.ActualClockIn = &t
	v.UpdatedAt = time.Now()
	r.visits[k] = v
	return true, nil
}

func (r *MemoryVisitsRepo) SetClockOut(_ context.Context, tenantID, visitID string, ts time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memKey(tenantID, visitID)
	v, ok := r.visits[k]
	if !ok {
		return false, domain.ErrVisitNotFound
	}
	if v.ActualClockOut != nil {
		return false, nil
	}
	t := ts
	v.ActualClockOut = &t
	v.UpdatedAt = time.Now()
	r.visits[k] = v
	return true, nil
}

func (r *MemoryVisitsRepo) ListVisitsByDate(ctx context.Context, tenantID, date string) ([]*domain.Visit, error) {
	return r.ListVisitsByDateRange(ctx, tenantID, date, date)
}

func (r *MemoryVisitsRepo) ListVisitsByDateRange(_ context.Context, tenantID, from, to string) ([]*domain.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Visit{}
	for _, v := range r.visits {
		if v.TenantID != tenantID {
			continue
		}
		if v.VisitDate < from || v.VisitDate > to {
			continue
		}
		c := cloneVisit(&v)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledStart.Equal(out[j].ScheduledStart) {
			return out[i].ScheduledStart.Before(out[j].ScheduledStart)
		}
		return out[i].VisitID < out[j].VisitID
	})
	return out, nil
}

func (r *MemoryVisitsRepo) CloseDay(_ context.Context, tenantID, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closedDays[memKey(tenantID, date)] = true
	return nil
}

func (r *MemoryVisitsRepo) IsDayClosed(_ context.Context, tenantID, date string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.closedDays[memKey(tenantID, date)], nil
}

// cloneVisit returns a deep copy so readers never observe later mutations.
func cloneVisit(v *domain.Visit) domain.Visit {
	out := *v
	if v.ActualClockIn != nil {
		t := *v.ActualClockIn
		out.ActualClockIn = &t
	}
	if v.ActualClockOut != nil {
		t := *v.ActualClockOut
		out.ActualClockOut = &t
	}
	return out
}
