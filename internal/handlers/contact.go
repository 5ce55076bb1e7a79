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

// ContactService defines the interface for contact message business logic
type ContactService interface {
	GetMessageByID(ctx context.Context, id string) (*models.ContactMessage, error)
	ListMessages(ctx context.Context, status string, limit, offset int) ([]*models.ContactMessage, error)
	SubmitMessage(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error)
	UpdateMessageStatus(ctx context.Context, id, status string) (*models.ContactMessage, error)
	DeleteMessage(ctx context.Context, id string) error
}

// ContactHandler handles contact form HTTP requests
type ContactHandler struct {
	service ContactService
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(service ContactService) *ContactHandler {
	return &ContactHandler{service: service}
}

// SubmitContactRequest represents the public contact form body
type SubmitContactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,min=2,max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

// UpdateContactStatusRequest represents the request body for a status change
type UpdateContactStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new read replied"`
}

// ContactMessageResponse represents a contact message in the HTTP response
type ContactMessageResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// ListContactMessagesResponse represents a list of contact messages
type ListContactMessagesResponse struct {
	Messages []*ContactMessageResponse `json:"messages"`
	Total    int                       `json:"total"`
}

func contactModelToResponse(m *models.ContactMessage) *ContactMessageResponse {
	return &ContactMessageResponse{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Subject:   m.Subject,
		Message:   m.Message,
		Status:    m.Status,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

// RegisterRoutes registers the protected contact routes with the chi router
func (h *ContactHandler) RegisterRoutes(router chi.Router) {
	router.Route("/contact", func(r chi.Router) {
		r.Get("/", h.ListMessages)
		r.Get("/{id}", h.GetMessage)
		r.Patch("/{id}/status", h.UpdateMessageStatus)
		r.Delete("/{id}", h.DeleteMessage)
	})
}

// RegisterPublicRoutes registers the public contact form route
func (h *ContactHandler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/contact", h.SubmitMessage)
}

// GetMessage retrieves a contact message by ID
func (h *ContactHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Message ID is required")
		return
	}

	msg, err := h.service.GetMessageByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Message not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, contactModelToResponse(msg))
}

// ListMessages retrieves contact messages with filtering and pagination
func (h *ContactHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	status := r.URL.Query().Get("status")

	msgs, err := h.service.ListMessages(r.Context(), status, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	resp := &ListContactMessagesResponse{
		Messages: make([]*ContactMessageResponse, 0, len(msgs)),
		Total:    len(msgs),
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, contactModelToResponse(m))
	}

	WriteJSON(w, http.StatusOK, resp)
}

// SubmitMessage accepts a public contact form submission and forwards it to
// the staff inbox.
func (h *ContactHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	var req SubmitContactRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	msg := &models.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	}

	created, err := h.service.SubmitMessage(r.Context(), msg)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusCreated, contactModelToResponse(created))
}

// UpdateMessageStatus marks a message as new, read or replied
func (h *ContactHandler) UpdateMessageStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Message ID is required")
		return
	}

	var req UpdateContactStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.service.UpdateMessageStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Message not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid message status")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	WriteJSON(w, http.StatusOK, contactModelToResponse(updated))
}

// DeleteMessage removes a contact message
func (h *ContactHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "Message ID is required")
		return
	}

	if err := h.service.DeleteMessage(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Message not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
