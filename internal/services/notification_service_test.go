package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremont/hospital-api/internal/models"
)

func allOffPreferences(userID string) *models.NotificationPreferences {
	return &models.NotificationPreferences{UserID: userID}
}

// ============================================================================
// Category gating
// ============================================================================

func TestShouldSend_GatingTable(t *testing.T) {
	base := func() *models.NotificationPreferences {
		p := DefaultPreferences("user123")
		return p
	}

	tests := []struct {
		name     string
		category models.NotificationCategory
		mutate   func(*models.NotificationPreferences)
		want     bool
	}{
		{"appointment with defaults", models.CategoryAppointment, nil, true},
		{"appointment without reminders", models.CategoryAppointment, func(p *models.NotificationPreferences) { p.AppointmentReminders = false }, false},
		{"appointment without email", models.CategoryAppointment, func(p *models.NotificationPreferences) { p.EmailNotifications = false }, false},
		{"application with defaults", models.CategoryApplication, nil, true},
		{"application without email", models.CategoryApplication, func(p *models.NotificationPreferences) { p.EmailNotifications = false }, false},
		{"contact with defaults", models.CategoryContact, nil, true},
		{"contact ignores other flags", models.CategoryContact, func(p *models.NotificationPreferences) {
			p.AppointmentReminders = false
			p.SystemUpdates = false
			p.EmergencyAlerts = false
			p.WeeklyReports = false
			p.MonthlyReports = false
		}, true},
		{"system with defaults", models.CategorySystem, nil, true},
		{"system without updates", models.CategorySystem, func(p *models.NotificationPreferences) { p.SystemUpdates = false }, false},
		{"emergency with defaults", models.CategoryEmergency, nil, true},
		{"emergency without alerts", models.CategoryEmergency, func(p *models.NotificationPreferences) { p.EmergencyAlerts = false }, false},
		{"report with both digests", models.CategoryReport, nil, true},
		{"report with only weekly", models.CategoryReport, func(p *models.NotificationPreferences) { p.MonthlyReports = false }, true},
		{"report with only monthly", models.CategoryReport, func(p *models.NotificationPreferences) { p.WeeklyReports = false }, true},
		{"report with neither digest", models.CategoryReport, func(p *models.NotificationPreferences) {
			p.WeeklyReports = false
			p.MonthlyReports = false
		}, false},
		{"unknown category follows email flag", models.NotificationCategory("billing"), nil, true},
		{"unknown category without email", models.NotificationCategory("billing"), func(p *models.NotificationPreferences) { p.EmailNotifications = false }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := base()
			if tt.mutate != nil {
				tt.mutate(prefs)
			}
			assert.Equal(t, tt.want, shouldSend(tt.category, prefs))
		})
	}
}

func TestShouldSend_IsDeterministic(t *testing.T) {
	prefs := DefaultPreferences("user123")
	prefs.AppointmentReminders = false

	for i := 0; i < 100; i++ {
		assert.False(t, shouldSend(models.CategoryAppointment, prefs))
	}
}

// ============================================================================
// SendNotification
// ============================================================================

func TestNotificationService_SuppressedByPreferences(t *testing.T) {
	prefs := DefaultPreferences("user123")
	prefs.AppointmentReminders = false

	prefsRepo := &MockPreferencesRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
			return prefs, nil
		},
	}
	sender := &MockEmailSender{}
	svc := NewNotificationService(prefsRepo, sender, newTestLogger())

	sent := svc.SendNotification(context.Background(), &models.NotificationRequest{
		UserID:         "user123",
		RecipientEmail: "staff@hospital.example",
		Subject:        "Appointment reminder",
		BodyText:       "You have an appointment tomorrow.",
		Category:       models.CategoryAppointment,
	})

	assert.False(t, sent)
	assert.Equal(t, 0, sender.CallCount(), "transport must not be called when gated off")
}

func TestNotificationService_UnrecognizedCategoryStillDelivers(t *testing.T) {
	prefsRepo := &MockPreferencesRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
			return DefaultPreferences(userID), nil
		},
	}
	sender := &MockEmailSender{}
	svc := NewNotificationService(prefsRepo, sender, newTestLogger())

	sent := svc.SendNotification(context.Background(), &models.NotificationRequest{
		UserID:         "user123",
		RecipientEmail: "staff@hospital.example",
		Subject:        "Billing statement",
		BodyText:       "Your statement is ready.",
		Category:       models.NotificationCategory("billing"),
	})

	assert.True(t, sent)
	assert.Equal(t, 1, sender.CallCount())
}

func TestNotificationService_NoUserIDBypassesGating(t *testing.T) {
	// Preferences that would gate everything off must be irrelevant when
	// the request has no user.
	prefsRepo := &MockPreferencesRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
			return allOffPreferences(userID), nil
		},
	}
	sender := &MockEmailSender{}
	svc := NewNotificationService(prefsRepo, sender, newTestLogger())

	sent := svc.SendNotification(context.Background(), &models.NotificationRequest{
		RecipientEmail: "reception@hospital.example",
		Subject:        "Contact form",
		BodyText:       "A visitor asked a question.",
		Category:       models.CategoryContact,
	})

	assert.True(t, sent)
	assert.Equal(t, 1, sender.CallCount())
}

func TestNotificationService_MissingPreferencesFailOpen(t *testing.T) {
	prefsRepo := &MockPreferencesRepository{} // GetByUserID returns ErrNotFound
	sender := &MockEmailSender{}
	svc := NewNotificationService(prefsRepo, sender, newTestLogger())

	sent := svc.SendNotification(context.Background(), &models.NotificationRequest{
		UserID:         "user123",
		RecipientEmail: "staff@hospital.example",
		Subject:        "System maintenance",
		BodyText:       "Scheduled downtime tonight.",
		Category:       models.CategorySystem,
	})

	assert.True(t, sent)
	assert.Equal(t, 1, sender.CallCount())
}

func TestNotificationService_PreferenceStorageErrorFailsOpen(t *testing.T) {
	prefsRepo := &MockPreferencesRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
			return nil, models.ErrInternalServer
		},
	}
	sender := &MockEmailSender{}
	svc := NewNotificationService(prefsRepo, sender, newTestLogger())

	sent := svc.SendNotification(context.Background(), &models.NotificationRequest{
		UserID:         "user123",
		RecipientEmail: "staff@hospital.example",
		Subject:        "Emergency drill",
		BodyText:       "Please report to your station.",
		Category:       models.CategoryEmergency,
	})

	assert.True(t, sent)
	assert.Equal(t, 1, sender.CallCount())
}

func TestNotificationService_TransportErrorReturnsFalse(t *testing.T) {
	sender := &MockEmailSender{
		SendEmailFunc: func(ctx context.Context, to, subject, text, html string) (*models.EmailDeliveryResult, error) {
			return nil, fmt.Errorf("context cancelled")
		},
	}
	svc := NewNotificationService(&MockPreferencesRepository{}, sender, newTestLogger())

	sent := svc.SendNotification(context.Background(), &models.NotificationRequest{
		RecipientEmail: "reception@hospital.example",
		Subject:        "Contact form",
		BodyText:       "hello",
		Category:       models.CategoryContact,
	})

	assert.False(t, sent)
	assert.Equal(t, 1, sender.CallCount())
}

func TestNotificationService_NoRecipientIsDropped(t *testing.T) {
	sender := &MockEmailSender{}
	svc := NewNotificationService(&MockPreferencesRepository{}, sender, newTestLogger())

	sent := svc.SendNotification(context.Background(), &models.NotificationRequest{
		Subject:  "orphaned",
		BodyText: "no destination",
		Category: models.CategorySystem,
	})

	assert.False(t, sent)
	assert.Equal(t, 0, sender.CallCount())
}

// ============================================================================
// SendBulk
// ============================================================================

func TestNotificationService_SendBulkTalliesIndependently(t *testing.T) {
	gated := DefaultPreferences("gated_user")
	gated.EmailNotifications = false

	prefsRepo := &MockPreferencesRepository{
		GetByUserIDFunc: func(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
			if userID == "gated_user" {
				return gated, nil
			}
			return nil, models.ErrNotFound
		},
	}
	sender := &MockEmailSender{}
	svc := NewNotificationService(prefsRepo, sender, newTestLogger())

	reqs := []*models.NotificationRequest{
		{UserID: "gated_user", RecipientEmail: "a@hospital.example", Subject: "1", BodyText: "x", Category: models.CategorySystem},
		{UserID: "open_user", RecipientEmail: "b@hospital.example", Subject: "2", BodyText: "x", Category: models.CategorySystem},
		{RecipientEmail: "c@hospital.example", Subject: "3", BodyText: "x", Category: models.CategoryContact},
	}

	result := svc.SendBulk(context.Background(), reqs)

	assert.Equal(t, 2, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, []string{"b@hospital.example", "c@hospital.example"}, sender.Recipients())
}

// ============================================================================
// Defaults
// ============================================================================

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences("user123")

	require.NotNil(t, prefs)
	assert.Equal(t, "user123", prefs.UserID)
	assert.True(t, prefs.EmailNotifications)
	assert.False(t, prefs.SMSNotifications)
	assert.True(t, prefs.PushNotifications)
	assert.True(t, prefs.AppointmentReminders)
	assert.True(t, prefs.EmergencyAlerts)
	assert.True(t, prefs.SystemUpdates)
	assert.True(t, prefs.WeeklyReports)
	assert.True(t, prefs.MonthlyReports)
}
