package models

import "time"

// Job application statuses
const (
	ApplicationSubmitted = "submitted"
	ApplicationInReview  = "in_review"
	ApplicationAccepted  = "accepted"
	ApplicationRejected  = "rejected"
)

// Application is a job application submitted through the careers page.
type Application struct {
	ID             string
	ApplicantName  string
	ApplicantEmail string
	Phone          string
	Position       string
	DepartmentID   *string
	CoverLetter    string
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidApplicationStatus reports whether s is a recognized application status.
func ValidApplicationStatus(s string) bool {
	switch s {
	case ApplicationSubmitted, ApplicationInReview, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}
