package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"

	"go.uber.org/zap"
)

// UserService defines the interface for user business logic
type UserService interface {
	// SyncUser upserts the identity carried by a session token. Identities
	// already stored unchanged by this process are not written again.
	SyncUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	UpdatePaymentInfo(ctx context.Context, id, customerID string, subscriptionID *string) (*domain.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	synced   sync.Map // user id -> identity fingerprint
	logger   *zap.Logger
}

// NewUserService creates a new instance of UserService
func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *userService) SyncUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	fingerprint := identityFingerprint(user)
	if seen, ok := s.synced.Load(user.ID); ok && seen == fingerprint {
		stored, err := s.userRepo.FindByID(ctx, user.ID)
		if err == nil {
			return stored, nil
		}
		s.synced.Delete(user.ID)
	}

	stored, err := s.userRepo.Upsert(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}
	s.synced.Store(user.ID, fingerprint)

	s.logger.Debug("User synced", zap.String("user_id", stored.ID), zap.String("role", stored.Role))
	return stored, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdatePaymentInfo stores the payment provider ids; a nil subscription clears it
func (s *userService) UpdatePaymentInfo(ctx context.Context, id, customerID string, subscriptionID *string) (*domain.User, error) {
	user, err := s.userRepo.UpdatePaymentInfo(ctx, id, customerID, trimmed(subscriptionID))
	if err != nil {
		return nil, fmt.Errorf("failed to update payment info: %w", err)
	}

	s.logger.Info("User payment profile updated", zap.String("user_id", user.ID))
	return user, nil
}

func identityFingerprint(u *domain.User) string {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return strings.Join([]string{
		deref(u.Email),
		deref(u.FirstName),
		deref(u.LastName),
		deref(u.ProfileImageURL),
		u.Role,
	}, "\x00")
}
