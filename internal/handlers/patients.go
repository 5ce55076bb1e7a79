package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/caremont/hospital-api/internal/models"
	"github.com/caremont/hospital-api/internal/repositories"
	pkghttp "github.com/caremont/hospital-api/pkg/http"
)

// PatientService defines the interface for patient business logic
type PatientService interface {
	GetPatientByID(ctx context.Context, id string) (*models.Patient, error)
	ListPatients(ctx context.Context, filter repositories.PatientFilter, limit, offset int) ([]*models.Patient, error)
	CreatePatient(ctx context.Context, patient *models.Patient) (*models.Patient, error)
	UpdatePatient(ctx context.Context, id string, patient *models.Patient) (*models.Patient, error)
	DeletePatient(ctx context.Context, id string) error
}

// PatientHandler handles patient-related HTTP requests
type PatientHandler struct {
	service PatientService
}

// NewPatientHandler creates a new PatientHandler
func NewPatientHandler(service PatientService) *PatientHandler {
	return &PatientHandler{service: service}
}

// Request/Response DTOs

// CreatePatientRequest represents the request body for registering a patient
type CreatePatientRequest struct {
	FirstName   string `json:"first_name" validate:"required,min=1"`
	LastName    string `json:"last_name" validate:"required,min=1"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,min=5"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty"`
	Gender      string `json:"gender" validate:"omitempty,oneof=male female other"`
	BloodGroup  string `json:"blood_group" validate:"omitempty"`
	Address     string `json:"address" validate:"omitempty"`
}

// UpdatePatientRequest represents the request body for updating a patient
type UpdatePatientRequest struct {
	FirstName string `json:"first_name" validate:"omitempty,min=1"`
	LastName  string `json:"last_name" validate:"omitempty,min=1"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,min=5"`
	Address   string `json:"address" validate:"omitempty"`
	Status    string `json:"status" validate:"omitempty,oneof=active discharged deceased"`
}

// PatientResponse represents a patient in the HTTP response
type PatientResponse struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	BloodGroup  string `json:"blood_group,omitempty"`
	Address     string `json:"address,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// ListPatientsResponse represents a list of patients
type ListPatientsResponse struct {
	Patients []*PatientResponse `json:"patients"`
	Total    int                `json:"total"`
}

func patientModelToResponse(p *models.Patient) *PatientResponse {
	resp := &PatientResponse{
		ID:         p.ID,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Email:      p.Email,
		Phone:      p.Phone,
		Gender:     p.Gender,
		BloodGroup: p.BloodGroup,
		Address:    p.Address,
		Status:     p.Status,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  p.UpdatedAt.Format(time.RFC3339),
	}
	if p.DateOfBirth != nil {
		resp.DateOfBirth = p.DateOfBirth.Format("2006-01-02")
	}
	return resp
}

// RegisterRoutes registers all patient routes with the chi router
func (h *PatientHandler) RegisterRoutes(router chi.Router) {
	router.Route("/patients", func(r chi.Router) {
		r.Post("/", h.CreatePatient)
		r.Get("/", h.ListPatients)
		r.Get("/{id}", h.GetPatient)
		r.Put("/{id}", h.UpdatePatient)
		r.Delete("/{id}", h.DeletePatient)
	})
}

// GetPatient retrieves a patient by ID
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Patient ID is required")
		return
	}

	patient, err := h.service.GetPatientByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Patient not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, patientModelToResponse(patient))
}

// ListPatients retrieves patients with filtering and pagination
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := repositories.PatientFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}

	patients, err := h.service.ListPatients(r.Context(), filter, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := &ListPatientsResponse{
		Patients: make([]*PatientResponse, 0, len(patients)),
		Total:    len(patients),
	}
	for _, p := range patients {
		resp.Patients = append(resp.Patients, patientModelToResponse(p))
	}

	WriteJSON(w, http.StatusOK, resp)
}

// CreatePatient registers a new patient record
func (h *PatientHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	patient := &models.Patient{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Gender:     req.Gender,
		BloodGroup: req.BloodGroup,
		Address:    req.Address,
	}

	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			pkghttp.WriteBadRequest(w, "date_of_birth must be in YYYY-MM-DD format")
			return
		}
		patient.DateOfBirth = &dob
	}

	created, err := h.service.CreatePatient(r.Context(), patient)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "A patient with this email already exists")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusCreated, patientModelToResponse(created))
}

// UpdatePatient updates a patient record
func (h *PatientHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Patient ID is required")
		return
	}

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	patient := &models.Patient{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		Status:    req.Status,
	}

	updated, err := h.service.UpdatePatient(r.Context(), id, patient)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Patient not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "A patient with this email already exists")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusOK, patientModelToResponse(updated))
}

// DeletePatient removes a patient record
func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Patient ID is required")
		return
	}

	if err := h.service.DeletePatient(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Patient not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
