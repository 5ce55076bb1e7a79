package models

import "time"

type Patient struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	DateOfBirth *time.Time
	Gender      string // "male", "female", "other"
	BloodGroup  string
	Address     string
	Status      string // "active", "discharged", "deceased"
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
