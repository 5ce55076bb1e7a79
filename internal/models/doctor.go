package models

import "time"

type Doctor struct {
	ID           string
	UserID       *string // Linked staff account, if any
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Specialty    string
	DepartmentID *string
	Status       string // "active", "on_leave", "inactive"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Department struct {
	ID           string
	Name         string
	Description  string
	HeadDoctorID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
