package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"madera-precisa/internal/domain"
)

const userColumns = `
	id, email, first_name, last_name, profile_image_url, role,
	payment_customer_id, payment_subscription_id, created_at, updated_at`

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

// Upsert inserts the user or refreshes the profile of an existing one.
// Creation time and an existing payment profile are kept.
func (r *userRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (
			id, email, first_name, last_name, profile_image_url, role,
			payment_customer_id, payment_subscription_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			profile_image_url = EXCLUDED.profile_image_url,
			role = EXCLUDED.role,
			payment_customer_id = COALESCE(EXCLUDED.payment_customer_id, users.payment_customer_id),
			payment_subscription_id = COALESCE(EXCLUDED.payment_subscription_id, users.payment_subscription_id),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = now
	}

	stored, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ProfileImageURL,
		user.Role,
		user.PaymentCustomerID,
		user.PaymentSubscriptionID,
		user.CreatedAt,
		user.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return stored, nil
}

// FindByID retrieves a user by identity subject
func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// UpdatePaymentInfo stores the payment provider customer and subscription ids
func (r *userRepository) UpdatePaymentInfo(ctx context.Context, id, customerID string, subscriptionID *string) (*domain.User, error) {
	query := `
		UPDATE users
		SET payment_customer_id = $2, payment_subscription_id = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, customerID, subscriptionID, time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user payment info: %w", err)
	}

	return user, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.ProfileImageURL,
		&user.Role,
		&user.PaymentCustomerID,
		&user.PaymentSubscriptionID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
