package domain

import "time"

// ContactStatus is the handling state of a contact request
type ContactStatus string

const (
	ContactStatusNew     ContactStatus = "new"
	ContactStatusRead    ContactStatus = "read"
	ContactStatusReplied ContactStatus = "replied"
	ContactStatusClosed  ContactStatus = "closed"
)

// Valid reports whether s is a known contact status
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusRead, ContactStatusReplied, ContactStatusClosed:
		return true
	}
	return false
}

// ContactRequest is a message sent through the public contact form
type ContactRequest struct {
	ID        int64         `json:"id" db:"id"`
	Name      string        `json:"name" db:"name"`
	Email     string        `json:"email" db:"email"`
	Phone     *string       `json:"phone" db:"phone"`
	Subject   string        `json:"subject" db:"subject"`
	Message   string        `json:"message" db:"message"`
	Status    ContactStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// NewContactRequest normalises a contact request: status new, empty phone dropped
func NewContactRequest(name, email string, phone *string, subject, message string, now time.Time) *ContactRequest {
	return &ContactRequest{
		Name:      name,
		Email:     email,
		Phone:     nonEmpty(phone),
		Subject:   subject,
		Message:   message,
		Status:    ContactStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
