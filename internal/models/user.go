package models

import (
	"time"
)

type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	Name                string
	Role                string // "admin", "doctor", "staff"
	Status              string // "active", "suspended", "disabled"
	FailedLoginAttempts int
	LockedUntil         *time.Time // Temporary account lock expiration
	PasswordChangedAt   *time.Time // Last password change timestamp for token invalidation
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
