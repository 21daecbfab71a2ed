package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"premier-care-hub/internal/domain"
)

// MemoryCaregiversRepo in-memory caregiver reference data.
type MemoryCaregiversRepo struct {
	mu         sync.RWMutex
	caregivers map[string]domain.Caregiver // tenantID/caregiverID -> Caregiver
}

func NewMemoryCaregiversRepo() *MemoryCaregiversRepo {
	return &MemoryCaregiversRepo{
		caregivers: map[string]domain.Caregiver{},
	}
}

func (r *MemoryCaregiversRepo) UpsertCaregiver(_ context.Context, tenantID string, caregiver *domain.Caregiver) error {
	if caregiver == nil {
		return fmt.Errorf("caregiver is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.caregivers[memKey(tenantID, caregiver.CaregiverID)] = *caregiver
	return nil
}

func (r *MemoryCaregiversRepo) GetCaregiver(_ context.Context, tenantID, caregiverID string) (*domain.Caregiver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.caregivers[memKey(tenantID, caregiverID)]
	if !ok {
		return nil, domain.ErrCaregiverNotFound
	}
	out := c
	return &out, nil
}

func (r *MemoryCaregiversRepo) ListCaregivers(_ context.Context, tenantID string) ([]*domain.Caregiver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*domain.Caregiver{}
	for _, c := range r.caregivers {
		if c.TenantID != tenantID {
			continue
		}
		cp := c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CaregiverID < out[j].CaregiverID
	})
	return out, nil
}

// MemoryPatientsRepo in-memory patient reference data.
type MemoryPatientsRepo struct {
	mu       sync.RWMutex
	patients map[string]domain.Patient // tenantID/patientID -> Patient
}

func NewMemoryPatientsRepo() *MemoryPatientsRepo {
	return &MemoryPatientsRepo{
		patients: map[string]domain.Patient{},
	}
}

func (r *MemoryPatientsRepo) UpsertPatient(_ context.Context, tenantID string, patient *domain.Patient) error {
	if patient == nil {
		return fmt.Errorf("patient is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.patients[memKey(tenantID, patient.PatientID)] = *patient
	return nil
}

func (r *MemoryPatientsRepo) GetPatient(_ context.Context, tenantID, patientID string) (*domain.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[memKey(tenantID, patientID)]
	if !ok {
		return nil, domain.ErrPatientNotFound
	}
	out := p
	return &out, nil
}

func (r *MemoryPatientsRepo) SetPatientReachable(_ context.Context, tenantID, patientID string, reachable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := memKey(tenantID, patientID)
	p, ok := r.patients[k]
	if !ok {
		return domain.ErrPatientNotFound
	}
	p.Reachable = reachable
	r.patients[k] = p
	return nil
}
