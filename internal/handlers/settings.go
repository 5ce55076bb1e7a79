package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caremont/hospital-api/internal/auth"
	"github.com/caremont/hospital-api/internal/models"
	pkghttp "github.com/caremont/hospital-api/pkg/http"
)

// SettingsService defines the interface for notification settings logic
type SettingsService interface {
	GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, prefs *models.NotificationPreferences) (*models.NotificationPreferences, error)
}

// SettingsHandler handles notification preference HTTP requests for the
// authenticated user.
type SettingsHandler struct {
	service SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// UpdatePreferencesRequest represents the request body for saving preferences.
// All fields are required so a partial update cannot silently zero the rest.
type UpdatePreferencesRequest struct {
	EmailNotifications   *bool `json:"email_notifications" validate:"required"`
	SMSNotifications     *bool `json:"sms_notifications" validate:"required"`
	PushNotifications    *bool `json:"push_notifications" validate:"required"`
	AppointmentReminders *bool `json:"appointment_reminders" validate:"required"`
	EmergencyAlerts      *bool `json:"emergency_alerts" validate:"required"`
	SystemUpdates        *bool `json:"system_updates" validate:"required"`
	WeeklyReports        *bool `json:"weekly_reports" validate:"required"`
	MonthlyReports       *bool `json:"monthly_reports" validate:"required"`
}

// PreferencesResponse represents notification preferences in the HTTP response
type PreferencesResponse struct {
	UserID               string `json:"user_id"`
	EmailNotifications   bool   `json:"email_notifications"`
	SMSNotifications     bool   `json:"sms_notifications"`
	PushNotifications    bool   `json:"push_notifications"`
	AppointmentReminders bool   `json:"appointment_reminders"`
	EmergencyAlerts      bool   `json:"emergency_alerts"`
	SystemUpdates        bool   `json:"system_updates"`
	WeeklyReports        bool   `json:"weekly_reports"`
	MonthlyReports       bool   `json:"monthly_reports"`
}

func preferencesModelToResponse(p *models.NotificationPreferences) *PreferencesResponse {
	return &PreferencesResponse{
		UserID:               p.UserID,
		EmailNotifications:   p.EmailNotifications,
		SMSNotifications:     p.SMSNotifications,
		PushNotifications:    p.PushNotifications,
		AppointmentReminders: p.AppointmentReminders,
		EmergencyAlerts:      p.EmergencyAlerts,
		SystemUpdates:        p.SystemUpdates,
		WeeklyReports:        p.WeeklyReports,
		MonthlyReports:       p.MonthlyReports,
	}
}

// RegisterRoutes registers the settings routes with the chi router
func (h *SettingsHandler) RegisterRoutes(router chi.Router) {
	router.Route("/settings/notifications", func(r chi.Router) {
		r.Get("/", h.GetPreferences)
		r.Put("/", h.UpdatePreferences)
	})
}

// GetPreferences returns the authenticated user's notification preferences.
// Users who never saved preferences get the defaults.
func (h *SettingsHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	prefs, err := h.service.GetPreferences(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, preferencesModelToResponse(prefs))
}

// UpdatePreferences saves the authenticated user's notification preferences
func (h *SettingsHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	prefs := &models.NotificationPreferences{
		UserID:               claims.UserID,
		EmailNotifications:   *req.EmailNotifications,
		SMSNotifications:     *req.SMSNotifications,
		PushNotifications:    *req.PushNotifications,
		AppointmentReminders: *req.AppointmentReminders,
		EmergencyAlerts:      *req.EmergencyAlerts,
		SystemUpdates:        *req.SystemUpdates,
		WeeklyReports:        *req.WeeklyReports,
		MonthlyReports:       *req.MonthlyReports,
	}

	saved, err := h.service.UpdatePreferences(r.Context(), prefs)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, preferencesModelToResponse(saved))
}
