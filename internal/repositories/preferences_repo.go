package repositories

import (
	"context"
	"time"

	"github.com/caremont/hospital-api/internal/database"
	"github.com/caremont/hospital-api/internal/models"
)

// PreferencesRepository handles database operations for notification preferences
type PreferencesRepository struct {
	db *database.DB
}

func NewPreferencesRepository(db *database.DB) *PreferencesRepository {
	return &PreferencesRepository{db: db}
}

const preferencesColumns = `user_id, email_notifications, sms_notifications, push_notifications,
	appointment_reminders, emergency_alerts, system_updates, weekly_reports, monthly_reports, updated_at`

func scanPreferencesRow(scanner rowScanner) (*models.NotificationPreferences, error) {
	var p models.NotificationPreferences

	err := scanner.Scan(
		&p.UserID, &p.EmailNotifications, &p.SMSNotifications, &p.PushNotifications,
		&p.AppointmentReminders, &p.EmergencyAlerts, &p.SystemUpdates,
		&p.WeeklyReports, &p.MonthlyReports, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &p, nil
}

// GetByUserID returns the stored preferences record for a user, or
// models.ErrNotFound when none exists yet.
func (r *PreferencesRepository) GetByUserID(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	query := `SELECT ` + preferencesColumns + ` FROM notification_preferences WHERE user_id = $1`
	return scanPreferencesRow(r.db.Pool.QueryRow(ctx, query, userID))
}

// Upsert stores the full preferences record, creating it on first write.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs *models.NotificationPreferences) (*models.NotificationPreferences, error) {
	prefs.UpdatedAt = time.Now()

	query := `
		INSERT INTO notification_preferences (` + preferencesColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			email_notifications = EXCLUDED.email_notifications,
			sms_notifications = EXCLUDED.sms_notifications,
			push_notifications = EXCLUDED.push_notifications,
			appointment_reminders = EXCLUDED.appointment_reminders,
			emergency_alerts = EXCLUDED.emergency_alerts,
			system_updates = EXCLUDED.system_updates,
			weekly_reports = EXCLUDED.weekly_reports,
			monthly_reports = EXCLUDED.monthly_reports,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + preferencesColumns

	return scanPreferencesRow(r.db.Pool.QueryRow(ctx, query,
		prefs.UserID, prefs.EmailNotifications, prefs.SMSNotifications, prefs.PushNotifications,
		prefs.AppointmentReminders, prefs.EmergencyAlerts, prefs.SystemUpdates,
		prefs.WeeklyReports, prefs.MonthlyReports, prefs.UpdatedAt,
	))
}
