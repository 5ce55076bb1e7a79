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

// DoctorService defines the interface for doctor business logic
type DoctorService interface {
	GetDoctorByID(ctx context.Context, id string) (*models.Doctor, error)
	ListDoctors(ctx context.Context, filter repositories.DoctorFilter, limit, offset int) ([]*models.Doctor, error)
	CreateDoctor(ctx context.Context, doctor *models.Doctor) (*models.Doctor, error)
	UpdateDoctor(ctx context.Context, id string, doctor *models.Doctor) (*models.Doctor, error)
	DeleteDoctor(ctx context.Context, id string) error
}

// DoctorHandler handles doctor-related HTTP requests
type DoctorHandler struct {
	service DoctorService
}

// NewDoctorHandler creates a new DoctorHandler
func NewDoctorHandler(service DoctorService) *DoctorHandler {
	return &DoctorHandler{service: service}
}

// CreateDoctorRequest represents the request body for adding a doctor
type CreateDoctorRequest struct {
	FirstName    string `json:"first_name" validate:"required,min=1"`
	LastName     string `json:"last_name" validate:"required,min=1"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"omitempty,min=5"`
	Specialty    string `json:"specialty" validate:"required,min=2"`
	DepartmentID string `json:"department_id" validate:"omitempty,uuid"`
	UserID       string `json:"user_id" validate:"omitempty,uuid"`
}

// UpdateDoctorRequest represents the request body for updating a doctor
type UpdateDoctorRequest struct {
	FirstName    string `json:"first_name" validate:"omitempty,min=1"`
	LastName     string `json:"last_name" validate:"omitempty,min=1"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"omitempty,min=5"`
	Specialty    string `json:"specialty" validate:"omitempty,min=2"`
	DepartmentID string `json:"department_id" validate:"omitempty,uuid"`
	Status       string `json:"status" validate:"omitempty,oneof=active on_leave inactive"`
}

// DoctorResponse represents a doctor in the HTTP response
type DoctorResponse struct {
	ID           string  `json:"id"`
	UserID       *string `json:"user_id,omitempty"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Specialty    string  `json:"specialty"`
	DepartmentID *string `json:"department_id,omitempty"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// ListDoctorsResponse represents a list of doctors
type ListDoctorsResponse struct {
	Doctors []*DoctorResponse `json:"doctors"`
	Total   int               `json:"total"`
}

func doctorModelToResponse(d *models.Doctor) *DoctorResponse {
	return &DoctorResponse{
		ID:           d.ID,
		UserID:       d.UserID,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		Phone:        d.Phone,
		Specialty:    d.Specialty,
		DepartmentID: d.DepartmentID,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    d.UpdatedAt.Format(time.RFC3339),
	}
}

// RegisterRoutes registers the protected doctor routes with the chi router
func (h *DoctorHandler) RegisterRoutes(router chi.Router) {
	router.Route("/doctors", func(r chi.Router) {
		r.Post("/", h.CreateDoctor)
		r.Put("/{id}", h.UpdateDoctor)
		r.Delete("/{id}", h.DeleteDoctor)
	})
}

// RegisterPublicRoutes registers the read-only doctor routes. The doctor
// directory is browsable without authentication.
func (h *DoctorHandler) RegisterPublicRoutes(router chi.Router) {
	router.Get("/doctors", h.ListDoctors)
	router.Get("/doctors/{id}", h.GetDoctor)
}

// GetDoctor retrieves a doctor by ID
func (h *DoctorHandler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Doctor ID is required")
		return
	}

	doctor, err := h.service.GetDoctorByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Doctor not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, doctorModelToResponse(doctor))
}

// ListDoctors retrieves doctors with filtering and pagination
func (h *DoctorHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := repositories.DoctorFilter{
		DepartmentID: r.URL.Query().Get("department_id"),
		Specialty:    r.URL.Query().Get("specialty"),
		Status:       r.URL.Query().Get("status"),
	}

	doctors, err := h.service.ListDoctors(r.Context(), filter, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := &ListDoctorsResponse{
		Doctors: make([]*DoctorResponse, 0, len(doctors)),
		Total:   len(doctors),
	}
	for _, d := range doctors {
		resp.Doctors = append(resp.Doctors, doctorModelToResponse(d))
	}

	WriteJSON(w, http.StatusOK, resp)
}

// CreateDoctor adds a new doctor record
func (h *DoctorHandler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var req CreateDoctorRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	doctor := &models.Doctor{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Specialty: req.Specialty,
	}
	if req.DepartmentID != "" {
		doctor.DepartmentID = &req.DepartmentID
	}
	if req.UserID != "" {
		doctor.UserID = &req.UserID
	}

	created, err := h.service.CreateDoctor(r.Context(), doctor)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Department does not exist")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "A doctor with this email already exists")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusCreated, doctorModelToResponse(created))
}

// UpdateDoctor updates a doctor record
func (h *DoctorHandler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Doctor ID is required")
		return
	}

	var req UpdateDoctorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	doctor := &models.Doctor{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Specialty: req.Specialty,
		Status:    req.Status,
	}
	if req.DepartmentID != "" {
		doctor.DepartmentID = &req.DepartmentID
	}

	updated, err := h.service.UpdateDoctor(r.Context(), id, doctor)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Doctor not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Department does not exist")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "A doctor with this email already exists")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusOK, doctorModelToResponse(updated))
}

// DeleteDoctor removes a doctor record
func (h *DoctorHandler) DeleteDoctor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Doctor ID is required")
		return
	}

	if err := h.service.DeleteDoctor(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Doctor not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
