package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"premier-care-hub/internal/domain"
)

// MemoryOutreachRepo in-memory outreach attempt log (append-only).
type MemoryOutreachRepo struct {
	mu       sync.RWMutex
	attempts map[string][]domain.OutreachAttempt // tenantID -> attempts
}

func NewMemoryOutreachRepo() *MemoryOutreachRepo {
	return &MemoryOutreachRepo{
		attempts: map[string][]domain.OutreachAttempt{},
	}
}

func (r *MemoryOutreachRepo) AppendAttempt(_ context.Context, tenantID string, attempt *domain.OutreachAttempt) error {
	if attempt == nil {
		return fmt.Errorf("attempt is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.attempts[tenantID] = append(r.attempts[tenantID], cloneAttempt(attempt))
	return nil
}

func (r *MemoryOutreachRepo) ListAttemptsByViolation(_ context.Context, tenantID, violationID string) ([]*domain.OutreachAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.OutreachAttempt{}
	for _, a := range r.attempts[tenantID] {
		if a.ViolationID != violationID {
			continue
		}
		c := cloneAttempt(&a)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out, nil
}

func (r *MemoryOutreachRepo) LatestPerChannel(ctx context.Context, tenantID, violationID string) (map[string]*domain.OutreachAttempt, error) {
	attempts, err := r.ListAttemptsByViolation(ctx, tenantID, violationID)
	if err != nil {
		return nil, err
	}

	latest := map[string]*domain.OutreachAttempt{}
	for _, a := range attempts {
		prev, ok := latest[a.Channel]
		if !ok || !a.SentAt.Before(prev.SentAt) {
			latest[a.Channel] = a
		}
	}
	return latest, nil
}

func (r *MemoryOutreachRepo) CountByChannel(_ context.Context, tenantID string, from, to time.Time) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sms, voice := 0, 0
	for _, a := range r.attempts[tenantID] {
		// 半开区间 [from, to)
		if a.SentAt.Before(from) || !a.SentAt.Before(to) {
			continue
		}
		switch a.Channel {
		case domain.ChannelSMS:
			sms++
		case domain.ChannelVoice:
			voice++
		}
	}
	return sms, voice, nil
}

func cloneAttempt(a *domain.OutreachAttempt) domain.OutreachAttempt {
	out := *a
	if a.PatientReached != nil {
		b := *a.PatientReached
		out.PatientReached = &b
	}
	return out
}
