package models

import "time"

// NotificationCategory identifies the kind of event a notification reports.
// The set is closed; anything else is handled by the explicit default branch
// in the preference gating table.
type NotificationCategory string

const (
	CategoryAppointment NotificationCategory = "appointment"
	CategoryApplication NotificationCategory = "application"
	CategoryContact     NotificationCategory = "contact"
	CategorySystem      NotificationCategory = "system"
	CategoryEmergency   NotificationCategory = "emergency"
	CategoryReport      NotificationCategory = "report"
)

// KnownCategories lists every named notification category.
var KnownCategories = []NotificationCategory{
	CategoryAppointment,
	CategoryApplication,
	CategoryContact,
	CategorySystem,
	CategoryEmergency,
	CategoryReport,
}

// IsKnown reports whether c is one of the named categories.
func (c NotificationCategory) IsKnown() bool {
	for _, known := range KnownCategories {
		if c == known {
			return true
		}
	}
	return false
}

// NotificationPreferences holds a user's per-channel and per-category
// opt-in flags. A missing record is equivalent to DefaultPreferences.
type NotificationPreferences struct {
	UserID               string
	EmailNotifications   bool
	SMSNotifications     bool
	PushNotifications    bool
	AppointmentReminders bool
	EmergencyAlerts      bool
	SystemUpdates        bool
	WeeklyReports        bool
	MonthlyReports       bool
	UpdatedAt            time.Time
}

// NotificationRequest describes one notification to dispatch. UserID is
// optional: when empty the message is system-originated and preference
// gating is bypassed.
type NotificationRequest struct {
	UserID         string
	RecipientEmail string
	Subject        string
	BodyText       string
	BodyHTML       string
	Category       NotificationCategory
}

// EmailDeliveryResult is produced by every delivery attempt, including the
// synthetic results for the no-transport-configured and all-configs-failed
// cases. Callers inspect Rejected/StatusText to detect failure.
type EmailDeliveryResult struct {
	MessageID  string
	Accepted   []string
	Rejected   []string
	StatusText string
}
