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

// ApplicationService defines the interface for job application business logic
type ApplicationService interface {
	GetApplicationByID(ctx context.Context, id string) (*models.Application, error)
	ListApplications(ctx context.Context, filter repositories.ApplicationFilter, limit, offset int) ([]*models.Application, error)
	SubmitApplication(ctx context.Context, app *models.Application) (*models.Application, error)
	UpdateApplicationStatus(ctx context.Context, id, status string) (*models.Application, error)
	DeleteApplication(ctx context.Context, id string) error
}

// ApplicationHandler handles job application HTTP requests
type ApplicationHandler struct {
	service ApplicationService
}

// NewApplicationHandler creates a new ApplicationHandler
func NewApplicationHandler(service ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// SubmitApplicationRequest represents the public request body for applying
type SubmitApplicationRequest struct {
	ApplicantName  string `json:"applicant_name" validate:"required,min=2,max=100"`
	ApplicantEmail string `json:"applicant_email" validate:"required,email"`
	Phone          string `json:"phone" validate:"omitempty,min=5"`
	Position       string `json:"position" validate:"required,min=2,max=100"`
	DepartmentID   string `json:"department_id" validate:"omitempty,uuid"`
	CoverLetter    string `json:"cover_letter" validate:"omitempty,max=5000"`
}

// UpdateApplicationStatusRequest represents the request body for a decision
type UpdateApplicationStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=submitted in_review accepted rejected"`
}

// ApplicationResponse represents an application in the HTTP response
type ApplicationResponse struct {
	ID             string  `json:"id"`
	ApplicantName  string  `json:"applicant_name"`
	ApplicantEmail string  `json:"applicant_email"`
	Phone          string  `json:"phone,omitempty"`
	Position       string  `json:"position"`
	DepartmentID   *string `json:"department_id,omitempty"`
	CoverLetter    string  `json:"cover_letter,omitempty"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// ListApplicationsResponse represents a list of applications
type ListApplicationsResponse struct {
	Applications []*ApplicationResponse `json:"applications"`
	Total        int                    `json:"total"`
}

func applicationModelToResponse(a *models.Application) *ApplicationResponse {
	return &ApplicationResponse{
		ID:             a.ID,
		ApplicantName:  a.ApplicantName,
		ApplicantEmail: a.ApplicantEmail,
		Phone:          a.Phone,
		Position:       a.Position,
		DepartmentID:   a.DepartmentID,
		CoverLetter:    a.CoverLetter,
		Status:         a.Status,
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      a.UpdatedAt.Format(time.RFC3339),
	}
}

// RegisterRoutes registers the protected application routes with the chi router
func (h *ApplicationHandler) RegisterRoutes(router chi.Router) {
	router.Route("/applications", func(r chi.Router) {
		r.Get("/", h.ListApplications)
		r.Get("/{id}", h.GetApplication)
		r.Patch("/{id}/status", h.UpdateApplicationStatus)
		r.Delete("/{id}", h.DeleteApplication)
	})
}

// RegisterPublicRoutes registers the public application submission route
func (h *ApplicationHandler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/applications", h.SubmitApplication)
}

// GetApplication retrieves an application by ID
func (h *ApplicationHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Application ID is required")
		return
	}

	app, err := h.service.GetApplicationByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Application not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, applicationModelToResponse(app))
}

// ListApplications retrieves applications with filtering and pagination
func (h *ApplicationHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := repositories.ApplicationFilter{
		Status:   r.URL.Query().Get("status"),
		Position: r.URL.Query().Get("position"),
	}

	apps, err := h.service.ListApplications(r.Context(), filter, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := &ListApplicationsResponse{
		Applications: make([]*ApplicationResponse, 0, len(apps)),
		Total:        len(apps),
	}
	for _, a := range apps {
		resp.Applications = append(resp.Applications, applicationModelToResponse(a))
	}

	WriteJSON(w, http.StatusOK, resp)
}

// SubmitApplication accepts a public job application and sends the applicant
// an acknowledgement email.
func (h *ApplicationHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req SubmitApplicationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	app := &models.Application{
		ApplicantName:  req.ApplicantName,
		ApplicantEmail: req.ApplicantEmail,
		Phone:          req.Phone,
		Position:       req.Position,
		CoverLetter:    req.CoverLetter,
	}
	if req.DepartmentID != "" {
		app.DepartmentID = &req.DepartmentID
	}

	created, err := h.service.SubmitApplication(r.Context(), app)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusCreated, applicationModelToResponse(created))
}

// UpdateApplicationStatus transitions an application to a new status. An
// accepted or rejected decision notifies the applicant.
func (h *ApplicationHandler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Application ID is required")
		return
	}

	var req UpdateApplicationStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.service.UpdateApplicationStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Application not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid application status")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusOK, applicationModelToResponse(updated))
}

// DeleteApplication removes an application record
func (h *ApplicationHandler) DeleteApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Application ID is required")
		return
	}

	if err := h.service.DeleteApplication(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Application not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
