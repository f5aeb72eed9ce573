package domain

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is a customer identified by the subject of their identity token
type User struct {
	ID                    string    `json:"id" db:"id"`
	Email                 *string   `json:"email" db:"email"`
	FirstName             *string   `json:"firstName" db:"first_name"`
	LastName              *string   `json:"lastName" db:"last_name"`
	ProfileImageURL       *string   `json:"profileImageUrl" db:"profile_image_url"`
	Role                  string    `json:"role" db:"role"`
	PaymentCustomerID     *string   `json:"paymentCustomerId" db:"payment_customer_id"`
	PaymentSubscriptionID *string   `json:"paymentSubscriptionId" db:"payment_subscription_id"`
	CreatedAt             time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time `json:"updatedAt" db:"updated_at"`
}

// NewUser normalises identity claims into a user record
func NewUser(id string, email, firstName, lastName, profileImageURL *string, role string, now time.Time) *User {
	if role == "" {
		role = RoleCustomer
	}
	return &User{
		ID:              id,
		Email:           nonEmpty(email),
		FirstName:       nonEmpty(firstName),
		LastName:        nonEmpty(lastName),
		ProfileImageURL: nonEmpty(profileImageURL),
		Role:            role,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
