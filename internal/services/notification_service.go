package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/caremont/hospital-api/internal/models"
)

// PreferencesRepository defines the interface for notification preference storage
type PreferencesRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	Upsert(ctx context.Context, prefs *models.NotificationPreferences) (*models.NotificationPreferences, error)
}

// EmailSender defines the outbound transport consumed by the notification layer
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, text, html string) (*models.EmailDeliveryResult, error)
}

// BulkResult tallies the outcome of a batch dispatch.
type BulkResult struct {
	SentCount   int `json:"sent_count"`
	FailedCount int `json:"failed_count"`
}

// NotificationService gates outbound notifications on per-user preferences
// and delegates delivery to the email transport.
type NotificationService struct {
	prefsRepo PreferencesRepository
	sender    EmailSender
	logger    *slog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(prefsRepo PreferencesRepository, sender EmailSender, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		prefsRepo: prefsRepo,
		sender:    sender,
		logger:    logger,
	}
}

// DefaultPreferences returns the preference record used when a user has
// never saved settings. Everything is on except SMS.
func DefaultPreferences(userID string) *models.NotificationPreferences {
	return &models.NotificationPreferences{
		UserID:               userID,
		EmailNotifications:   true,
		SMSNotifications:     false,
		PushNotifications:    true,
		AppointmentReminders: true,
		EmergencyAlerts:      true,
		SystemUpdates:        true,
		WeeklyReports:        true,
		MonthlyReports:       true,
	}
}

// SendNotification decides whether the request should be delivered and, if
// so, hands it to the transport. It reports true only when delivery was
// attempted and the transport did not error; a preference-suppressed
// request reports false without touching the transport. Delivery problems
// are logged, never escalated, so the business operation that triggered
// the notification cannot fail on mail infrastructure.
func (s *NotificationService) SendNotification(ctx context.Context, req *models.NotificationRequest) bool {
	if req.RecipientEmail == "" {
		s.logger.Warn("notification dropped: no recipient",
			slog.String("category", string(req.Category)))
		return false
	}

	// Unknown categories still go out through the gating default branch,
	// but loudly, so a typo in a new call site gets noticed.
	if !req.Category.IsKnown() {
		s.logger.Warn("notification with unrecognized category",
			slog.String("category", string(req.Category)))
	}

	// Requests without a user are system-originated (e.g. forwarding a
	// contact-form submission to staff) and bypass preference gating.
	if req.UserID != "" {
		prefs := s.preferencesFor(ctx, req.UserID)
		if !shouldSend(req.Category, prefs) {
			s.logger.Debug("notification suppressed by preferences",
				slog.String("user_id", req.UserID),
				slog.String("category", string(req.Category)))
			return false
		}
	}

	result, err := s.sender.SendEmail(ctx, req.RecipientEmail, req.Subject, req.BodyText, req.BodyHTML)
	if err != nil {
		s.logger.Error("notification delivery failed",
			slog.String("category", string(req.Category)),
			slog.Any("error", err))
		return false
	}

	s.logger.Info("notification dispatched",
		slog.String("category", string(req.Category)),
		slog.String("message_id", result.MessageID),
		slog.String("status", result.StatusText))
	return true
}

// SendBulk dispatches each request independently, in order. There is no
// rollback; a failure only affects its own tally.
func (s *NotificationService) SendBulk(ctx context.Context, reqs []*models.NotificationRequest) BulkResult {
	var result BulkResult
	for _, req := range reqs {
		if s.SendNotification(ctx, req) {
			result.SentCount++
		} else {
			result.FailedCount++
		}
	}
	return result
}

// preferencesFor loads the stored preferences or falls back to the
// defaults. Missing records and storage errors both fail open; blocking a
// notification because the settings table hiccuped is worse than sending
// one the user opted out of.
func (s *NotificationService) preferencesFor(ctx context.Context, userID string) *models.NotificationPreferences {
	prefs, err := s.prefsRepo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to load notification preferences",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
		return DefaultPreferences(userID)
	}
	return prefs
}

// shouldSend maps a category onto the preference flags that govern it.
func shouldSend(category models.NotificationCategory, prefs *models.NotificationPreferences) bool {
	switch category {
	case models.CategoryAppointment:
		return prefs.EmailNotifications && prefs.AppointmentReminders
	case models.CategoryApplication, models.CategoryContact:
		return prefs.EmailNotifications
	case models.CategorySystem:
		return prefs.EmailNotifications && prefs.SystemUpdates
	case models.CategoryEmergency:
		return prefs.EmailNotifications && prefs.EmergencyAlerts
	case models.CategoryReport:
		return prefs.EmailNotifications && (prefs.WeeklyReports || prefs.MonthlyReports)
	default:
		return prefs.EmailNotifications
	}
}
