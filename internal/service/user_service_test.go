package service

import (
	"context"
	"testing"
	"time"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock repository for testing
type mockUserRepository struct {
	users   map[string]*domain.User
	upserts int
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	m.upserts++
	stored := *user
	m.users[user.ID] = &stored
	return &stored, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	user, exists := m.users[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) UpdatePaymentInfo(ctx context.Context, id, customerID string, subscriptionID *string) (*domain.User, error) {
	user, exists := m.users[id]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	user.PaymentCustomerID = &customerID
	user.PaymentSubscriptionID = subscriptionID
	return user, nil
}

func TestSyncUserSkipsUnchangedIdentity(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewUserService(repo, zap.NewNop())
	ctx := context.Background()

	identity := domain.NewUser("auth0|ana", ptr("ana@example.com"), ptr("Ana"), nil, nil, "", time.Now())

	_, err := svc.SyncUser(ctx, identity)
	require.NoError(t, err)
	_, err = svc.SyncUser(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.upserts)

	changed := domain.NewUser("auth0|ana", ptr("ana@new.example.com"), ptr("Ana"), nil, nil, "", time.Now())
	stored, err := svc.SyncUser(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.upserts)
	assert.Equal(t, "ana@new.example.com", *stored.Email)

	// a user removed behind the cache is written again
	delete(repo.users, "auth0|ana")
	_, err = svc.SyncUser(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, 3, repo.upserts)
}

func TestUpdatePaymentInfo(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewUserService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.SyncUser(ctx, domain.NewUser("auth0|ana", nil, nil, nil, nil, "", time.Now()))
	require.NoError(t, err)

	user, err := svc.UpdatePaymentInfo(ctx, "auth0|ana", "cus_1", ptr("  "))
	require.NoError(t, err)
	assert.Equal(t, "cus_1", *user.PaymentCustomerID)
	assert.Nil(t, user.PaymentSubscriptionID)

	_, err = svc.UpdatePaymentInfo(ctx, "auth0|luis", "cus_2", nil)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = svc.GetUser(ctx, "auth0|luis")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// Feature: storefront, Property 6: Syncing an identity stores it with a role
func TestProperty_SyncUserStoresIdentity(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("synced users read back with their claims and a role", prop.ForAll(
		func(id string, email string, role string) bool {
			repo := newMockUserRepository()
			svc := NewUserService(repo, zap.NewNop())
			ctx := context.Background()

			if _, err := svc.SyncUser(ctx, domain.NewUser(id, &email, nil, nil, nil, role, time.Now())); err != nil {
				t.Logf("FAIL: sync failed: %v", err)
				return false
			}

			user, err := svc.GetUser(ctx, id)
			if err != nil {
				return false
			}
			wantRole := role
			if wantRole == "" {
				wantRole = domain.RoleCustomer
			}
			return *user.Email == email && user.Role == wantRole
		},
		gen.RegexMatch(`auth0\|[a-z0-9]{8}`),
		gen.RegexMatch(`[a-z]{5,10}@[a-z]{3,8}\.com`),
		gen.IntRange(0, 2).Map(func(i int) string {
			return []string{"", domain.RoleCustomer, domain.RoleAdmin}[i]
		}),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
