package models

import "time"

// Appointment statuses
const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no_show"
)

type Appointment struct {
	ID           string
	PatientID    string
	DoctorID     string
	DepartmentID *string
	ScheduledAt  time.Time
	Reason       string
	Status       string
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidAppointmentStatus reports whether s is a recognized appointment status.
func ValidAppointmentStatus(s string) bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted,
		AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}
