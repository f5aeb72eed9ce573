package memory

import (
	"context"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"
)

type userRepository struct {
	s *Store
}

// Upsert replaces the profile fields of an existing user and keeps its
// creation time and payment profile
func (r *userRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *user
	stored.UpdatedAt = r.s.stamp(user.UpdatedAt)
	if existing, ok := r.s.users[user.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
		if stored.PaymentCustomerID == nil {
			stored.PaymentCustomerID = existing.PaymentCustomerID
		}
		if stored.PaymentSubscriptionID == nil {
			stored.PaymentSubscriptionID = existing.PaymentSubscriptionID
		}
	} else {
		stored.CreatedAt = r.s.stamp(user.CreatedAt)
	}
	r.s.users[user.ID] = stored
	return &stored, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepository) UpdatePaymentInfo(ctx context.Context, id, customerID string, subscriptionID *string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u.PaymentCustomerID = &customerID
	u.PaymentSubscriptionID = subscriptionID
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return &u, nil
}
