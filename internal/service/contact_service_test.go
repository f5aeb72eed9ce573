package service

import (
	"context"
	"testing"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"
	"madera-precisa/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestContactService(t *testing.T) {
	svc := NewContactService(memory.New().ContactRequests(), zap.NewNop())
	ctx := context.Background()

	request, err := svc.CreateContactRequest(ctx, ContactInput{
		Name:    "Ana",
		Email:   "ana@example.com",
		Phone:   ptr(""),
		Subject: "Cotización de closet",
		Message: "Necesito un closet de 2.4 m",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ContactStatusNew, request.Status)
	assert.Nil(t, request.Phone)

	requests, err := svc.ListContactRequests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)

	updated, err := svc.UpdateContactRequestStatus(ctx, request.ID, domain.ContactStatusReplied)
	require.NoError(t, err)
	assert.Equal(t, domain.ContactStatusReplied, updated.Status)

	_, err = svc.UpdateContactRequestStatus(ctx, request.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateContactRequestStatus(ctx, request.ID+1, domain.ContactStatusClosed)
	assert.ErrorIs(t, err, repository.ErrContactRequestNotFound)
}
