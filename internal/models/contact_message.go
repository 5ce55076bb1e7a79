package models

import "time"

// ContactMessage is a public contact-form submission. It has no associated
// account, so forwarding it to the staff inbox bypasses preference gating.
type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Message   string
	Status    string // "new", "read", "replied"
	CreatedAt time.Time
}
