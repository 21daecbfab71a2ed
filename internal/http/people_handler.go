package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"premier-care-hub/internal/domain"
	"premier-care-hub/internal/repository"
)

// PeopleHandler 护理员/患者参考数据同步接口（外部系统推送）
type PeopleHandler struct {
	caregiversRepo repository.CaregiversRepository
	patientsRepo   repository.PatientsRepository
	logger         *zap.Logger
}

// NewPeopleHandler 创建参考数据接口
func NewPeopleHandler(caregiversRepo repository.CaregiversRepository, patientsRepo repository.PatientsRepository, logger *zap.Logger) *PeopleHandler {
	return &PeopleHandler{
		caregiversRepo: caregiversRepo,
		patientsRepo:   patientsRepo,
		logger:         logger,
	}
}

// UpsertCaregiver PUT /evv/api/v1/caregivers
func (h *PeopleHandler) UpsertCaregiver(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var caregiver domain.Caregiver
	if err := readBodyJSON(r, 1<<20, &caregiver); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if caregiver.CaregiverID == "" || caregiver.CaregiverName == "" {
		writeJSON(w, http.StatusBadRequest, Fail("caregiver_id and caregiver_name are required"))
		return
	}
	caregiver.TenantID = tenantID

	if err := h.caregiversRepo.UpsertCaregiver(r.Context(), tenantID, &caregiver); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(&caregiver))
}

// ListCaregivers GET /evv/api/v1/caregivers
func (h *PeopleHandler) ListCaregivers(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	caregivers, err := h.caregiversRepo.ListCaregivers(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(caregivers))
}

// UpsertPatient PUT /evv/api/v1/patients
func (h *PeopleHandler) UpsertPatient(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var patient domain.Patient
	if err := readBodyJSON(r, 1<<20, &patient); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid request body"))
		return
	}
	if patient.PatientID == "" || patient.PatientName == "" {
		writeJSON(w, http.StatusBadRequest, Fail("patient_id and patient_name are required"))
		return
	}
	patient.TenantID = tenantID

	if err := h.patientsRepo.UpsertPatient(r.Context(), tenantID, &patient); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(&patient))
}
