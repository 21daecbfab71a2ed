package repository

import (
	"context"
	"sort"
	"sync"

	"premier-care-hub/internal/domain"
)

// MemoryViolationsRepo in-memory violation event store.
// Inserts happen through MemoryAlertsRepo.OpenAlert so the 1:1 alert invariant
// holds under a single critical section.
type MemoryViolationsRepo struct {
	mu         sync.RWMutex
	violations map[string]domain.ViolationEvent // tenantID/violationID -> event
}

func NewMemoryViolationsRepo() *MemoryViolationsRepo {
	return &MemoryViolationsRepo{
		violations: map[string]domain.ViolationEvent{},
	}
}

func (r *MemoryViolationsRepo) GetViolation(_ context.Context, tenantID, violationID string) (*domain.ViolationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.violations[memKey(tenantID, violationID)]
	if !ok {
		return nil, domain.ErrViolationNotFound
	}
	out := v
	return &out, nil
}

func (r *MemoryViolationsRepo) ListViolationsByVisit(_ context.Context, tenantID, visitID string) ([]*domain.ViolationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.ViolationEvent{}
	for _, v := range r.violations {
		if v.TenantID != tenantID || v.VisitID != visitID {
			continue
		}
		c := v
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out, nil
}

func (r *MemoryViolationsRepo) ViolationExists(_ context.Context, tenantID, visitID, kind string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.violations {
		if v.TenantID == tenantID && v.VisitID == visitID && v.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

// put inserts an event; called by MemoryAlertsRepo.OpenAlert.
func (r *MemoryViolationsRepo) put(violation *domain.ViolationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.violations[memKey(violation.TenantID, violation.ViolationID)] = *violation
}
