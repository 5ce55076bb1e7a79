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

// AppointmentService defines the interface for appointment business logic
type AppointmentService interface {
	GetAppointmentByID(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter repositories.AppointmentFilter, limit, offset int) ([]*models.Appointment, error)
	CreateAppointment(ctx context.Context, appt *models.Appointment) (*models.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, appt *models.Appointment) (*models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id, status string) (*models.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}

// AppointmentHandler handles appointment-related HTTP requests
type AppointmentHandler struct {
	service AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler
func NewAppointmentHandler(service AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

// CreateAppointmentRequest represents the request body for booking an appointment
type CreateAppointmentRequest struct {
	PatientID   string `json:"patient_id" validate:"required,uuid"`
	DoctorID    string `json:"doctor_id" validate:"required,uuid"`
	ScheduledAt string `json:"scheduled_at" validate:"required"`
	Reason      string `json:"reason" validate:"omitempty,max=500"`
}

// UpdateAppointmentRequest represents the request body for rescheduling
type UpdateAppointmentRequest struct {
	ScheduledAt string `json:"scheduled_at" validate:"omitempty"`
	Reason      string `json:"reason" validate:"omitempty,max=500"`
	Notes       string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateAppointmentStatusRequest represents the request body for a status change
type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled no_show"`
}

// AppointmentResponse represents an appointment in the HTTP response
type AppointmentResponse struct {
	ID           string  `json:"id"`
	PatientID    string  `json:"patient_id"`
	DoctorID     string  `json:"doctor_id"`
	DepartmentID *string `json:"department_id,omitempty"`
	ScheduledAt  string  `json:"scheduled_at"`
	Reason       string  `json:"reason,omitempty"`
	Status       string  `json:"status"`
	Notes        string  `json:"notes,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// ListAppointmentsResponse represents a list of appointments
type ListAppointmentsResponse struct {
	Appointments []*AppointmentResponse `json:"appointments"`
	Total        int                    `json:"total"`
}

func appointmentModelToResponse(a *models.Appointment) *AppointmentResponse {
	return &AppointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		DepartmentID: a.DepartmentID,
		ScheduledAt:  a.ScheduledAt.Format(time.RFC3339),
		Reason:       a.Reason,
		Status:       a.Status,
		Notes:        a.Notes,
		CreatedAt:    a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    a.UpdatedAt.Format(time.RFC3339),
	}
}

// RegisterRoutes registers all appointment routes with the chi router
func (h *AppointmentHandler) RegisterRoutes(router chi.Router) {
	router.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.CreateAppointment)
		r.Get("/", h.ListAppointments)
		r.Get("/{id}", h.GetAppointment)
		r.Put("/{id}", h.UpdateAppointment)
		r.Patch("/{id}/status", h.UpdateAppointmentStatus)
		r.Delete("/{id}", h.DeleteAppointment)
	})
}

// GetAppointment retrieves an appointment by ID
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Appointment ID is required")
		return
	}

	appt, err := h.service.GetAppointmentByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Appointment not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, appointmentModelToResponse(appt))
}

// ListAppointments retrieves appointments with filtering and pagination
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	filter := repositories.AppointmentFilter{
		PatientID: r.URL.Query().Get("patient_id"),
		DoctorID:  r.URL.Query().Get("doctor_id"),
		Status:    r.URL.Query().Get("status"),
	}

	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			pkghttp.WriteBadRequest(w, "from must be an RFC 3339 timestamp")
			return
		}
		filter.From = &t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			pkghttp.WriteBadRequest(w, "to must be an RFC 3339 timestamp")
			return
		}
		filter.To = &t
	}

	appts, err := h.service.ListAppointments(r.Context(), filter, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := &ListAppointmentsResponse{
		Appointments: make([]*AppointmentResponse, 0, len(appts)),
		Total:        len(appts),
	}
	for _, a := range appts {
		resp.Appointments = append(resp.Appointments, appointmentModelToResponse(a))
	}

	WriteJSON(w, http.StatusOK, resp)
}

// CreateAppointment books a new appointment
func (h *AppointmentHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		pkghttp.WriteBadRequest(w, "scheduled_at must be an RFC 3339 timestamp")
		return
	}

	appt := &models.Appointment{
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		ScheduledAt: scheduledAt,
		Reason:      req.Reason,
	}

	created, err := h.service.CreateAppointment(r.Context(), appt)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Patient or doctor does not exist, or the time is in the past")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "The doctor already has an appointment in this time slot")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusCreated, appointmentModelToResponse(created))
}

// UpdateAppointment updates an appointment's schedule, reason or notes
func (h *AppointmentHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Appointment ID is required")
		return
	}

	var req UpdateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	appt := &models.Appointment{
		Reason: req.Reason,
		Notes:  req.Notes,
	}
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			pkghttp.WriteBadRequest(w, "scheduled_at must be an RFC 3339 timestamp")
			return
		}
		appt.ScheduledAt = t
	}

	updated, err := h.service.UpdateAppointment(r.Context(), id, appt)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Appointment not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "The doctor already has an appointment in this time slot")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusOK, appointmentModelToResponse(updated))
}

// UpdateAppointmentStatus transitions an appointment to a new status. A
// confirmed or cancelled transition notifies the patient.
func (h *AppointmentHandler) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Appointment ID is required")
		return
	}

	var req UpdateAppointmentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.service.UpdateAppointmentStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Appointment not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid appointment status")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusOK, appointmentModelToResponse(updated))
}

// DeleteAppointment removes an appointment record
func (h *AppointmentHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Appointment ID is required")
		return
	}

	if err := h.service.DeleteAppointment(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Appointment not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
