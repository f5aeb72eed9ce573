package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"madera-precisa/internal/domain"
)

const contactRequestColumns = `id, name, email, phone, subject, message, status, created_at, updated_at`

type contactRequestRepository struct {
	db *sql.DB
}

// NewContactRequestRepository creates a new instance of ContactRequestRepository
func NewContactRequestRepository(db *sql.DB) ContactRequestRepository {
	return &contactRequestRepository{db: db}
}

// Create inserts a new contact request and sets its generated id
func (r *contactRequestRepository) Create(ctx context.Context, request *domain.ContactRequest) error {
	query := `
		INSERT INTO contact_requests (name, email, phone, subject, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	now := time.Now()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	if request.UpdatedAt.IsZero() {
		request.UpdatedAt = now
	}
	if request.Status == "" {
		request.Status = domain.ContactStatusNew
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		request.Name,
		request.Email,
		request.Phone,
		request.Subject,
		request.Message,
		request.Status,
		request.CreatedAt,
		request.UpdatedAt,
	).Scan(&request.ID)

	if err != nil {
		return fmt.Errorf("failed to create contact request: %w", err)
	}

	return nil
}

// List retrieves all contact requests, newest first
func (r *contactRequestRepository) List(ctx context.Context) ([]*domain.ContactRequest, error) {
	query := `SELECT ` + contactRequestColumns + ` FROM contact_requests ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact requests: %w", err)
	}
	defer rows.Close()

	requests := []*domain.ContactRequest{}
	for rows.Next() {
		request, err := scanContactRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact request: %w", err)
		}
		requests = append(requests, request)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contact requests: %w", err)
	}

	return requests, nil
}

// UpdateStatus overwrites the status of a contact request
func (r *contactRequestRepository) UpdateStatus(ctx context.Context, id int64, status domain.ContactStatus, updatedAt time.Time) (*domain.ContactRequest, error) {
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		UPDATE contact_requests
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + contactRequestColumns

	request, err := scanContactRequest(r.db.QueryRowContext(ctx, query, id, status, updatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrContactRequestNotFound
		}
		return nil, fmt.Errorf("failed to update contact request status: %w", err)
	}

	return request, nil
}

func scanContactRequest(row rowScanner) (*domain.ContactRequest, error) {
	request := &domain.ContactRequest{}
	err := row.Scan(
		&request.ID,
		&request.Name,
		&request.Email,
		&request.Phone,
		&request.Subject,
		&request.Message,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return request, nil
}
