package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/caremont/hospital-api/internal/models"
	pkghttp "github.com/caremont/hospital-api/pkg/http"
)

// DepartmentService defines the interface for department business logic
type DepartmentService interface {
	GetDepartmentByID(ctx context.Context, id string) (*models.Department, error)
	ListDepartments(ctx context.Context, limit, offset int) ([]*models.Department, error)
	CreateDepartment(ctx context.Context, dept *models.Department) (*models.Department, error)
	UpdateDepartment(ctx context.Context, id string, dept *models.Department) (*models.Department, error)
	DeleteDepartment(ctx context.Context, id string) error
}

// DepartmentHandler handles department-related HTTP requests
type DepartmentHandler struct {
	service DepartmentService
}

// NewDepartmentHandler creates a new DepartmentHandler
func NewDepartmentHandler(service DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{service: service}
}

// CreateDepartmentRequest represents the request body for creating a department
type CreateDepartmentRequest struct {
	Name         string `json:"name" validate:"required,min=2"`
	Description  string `json:"description" validate:"omitempty"`
	HeadDoctorID string `json:"head_doctor_id" validate:"omitempty,uuid"`
}

// UpdateDepartmentRequest represents the request body for updating a department
type UpdateDepartmentRequest struct {
	Name         string `json:"name" validate:"omitempty,min=2"`
	Description  string `json:"description" validate:"omitempty"`
	HeadDoctorID string `json:"head_doctor_id" validate:"omitempty,uuid"`
}

// DepartmentResponse represents a department in the HTTP response
type DepartmentResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	HeadDoctorID *string `json:"head_doctor_id,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// ListDepartmentsResponse represents a list of departments
type ListDepartmentsResponse struct {
	Departments []*DepartmentResponse `json:"departments"`
	Total       int                   `json:"total"`
}

func departmentModelToResponse(d *models.Department) *DepartmentResponse {
	return &DepartmentResponse{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		HeadDoctorID: d.HeadDoctorID,
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    d.UpdatedAt.Format(time.RFC3339),
	}
}

// RegisterRoutes registers the protected department routes with the chi router
func (h *DepartmentHandler) RegisterRoutes(router chi.Router) {
	router.Route("/departments", func(r chi.Router) {
		r.Post("/", h.CreateDepartment)
		r.Put("/{id}", h.UpdateDepartment)
		r.Delete("/{id}", h.DeleteDepartment)
	})
}

// RegisterPublicRoutes registers the read-only department routes
func (h *DepartmentHandler) RegisterPublicRoutes(router chi.Router) {
	router.Get("/departments", h.ListDepartments)
	router.Get("/departments/{id}", h.GetDepartment)
}

// GetDepartment retrieves a department by ID
func (h *DepartmentHandler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Department ID is required")
		return
	}

	dept, err := h.service.GetDepartmentByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Department not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, departmentModelToResponse(dept))
}

// ListDepartments retrieves departments with pagination
func (h *DepartmentHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	depts, err := h.service.ListDepartments(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := &ListDepartmentsResponse{
		Departments: make([]*DepartmentResponse, 0, len(depts)),
		Total:       len(depts),
	}
	for _, d := range depts {
		resp.Departments = append(resp.Departments, departmentModelToResponse(d))
	}

	WriteJSON(w, http.StatusOK, resp)
}

// CreateDepartment creates a new department
func (h *DepartmentHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req CreateDepartmentRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	dept := &models.Department{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.HeadDoctorID != "" {
		dept.HeadDoctorID = &req.HeadDoctorID
	}

	created, err := h.service.CreateDepartment(r.Context(), dept)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "A department with this name already exists")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusCreated, departmentModelToResponse(created))
}

// UpdateDepartment updates a department
func (h *DepartmentHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Department ID is required")
		return
	}

	var req UpdateDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	dept := &models.Department{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.HeadDoctorID != "" {
		dept.HeadDoctorID = &req.HeadDoctorID
	}

	updated, err := h.service.UpdateDepartment(r.Context(), id, dept)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Department not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "A department with this name already exists")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusOK, departmentModelToResponse(updated))
}

// DeleteDepartment removes a department. Departments with assigned doctors
// cannot be deleted.
func (h *DepartmentHandler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Department ID is required")
		return
	}

	if err := h.service.DeleteDepartment(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Department not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Department still has doctors assigned")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
