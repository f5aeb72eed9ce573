package service

import (
	"context"
	"fmt"
	"time"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"

	"go.uber.org/zap"
)

// ContactInput carries the fields of the public contact form
type ContactInput struct {
	Name    string
	Email   string
	Phone   *string
	Subject string
	Message string
}

// ContactService defines the interface for contact request handling
type ContactService interface {
	CreateContactRequest(ctx context.Context, input ContactInput) (*domain.ContactRequest, error)
	ListContactRequests(ctx context.Context) ([]*domain.ContactRequest, error)
	UpdateContactRequestStatus(ctx context.Context, id int64, status domain.ContactStatus) (*domain.ContactRequest, error)
}

type contactService struct {
	requests repository.ContactRequestRepository
	now      func() time.Time
	logger   *zap.Logger
}

// NewContactService creates a new instance of ContactService
func NewContactService(requests repository.ContactRequestRepository, logger *zap.Logger) ContactService {
	return &contactService{
		requests: requests,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *contactService) CreateContactRequest(ctx context.Context, input ContactInput) (*domain.ContactRequest, error) {
	request := domain.NewContactRequest(input.Name, input.Email, input.Phone, input.Subject, input.Message, s.now())
	if err := s.requests.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create contact request: %w", err)
	}

	s.logger.Info("Contact request received",
		zap.Int64("contact_request_id", request.ID),
		zap.String("subject", request.Subject),
	)
	return request, nil
}

// ListContactRequests returns every request, newest first
func (s *contactService) ListContactRequests(ctx context.Context) ([]*domain.ContactRequest, error) {
	requests, err := s.requests.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact requests: %w", err)
	}
	return requests, nil
}

func (s *contactService) UpdateContactRequestStatus(ctx context.Context, id int64, status domain.ContactStatus) (*domain.ContactRequest, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	request, err := s.requests.UpdateStatus(ctx, id, status, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update contact request status: %w", err)
	}
	return request, nil
}
