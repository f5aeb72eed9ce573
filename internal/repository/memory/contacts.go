package memory

import (
	"context"
	"sort"
	"time"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"
)

type contactRequestRepository struct {
	s *Store
}

func (r *contactRequestRepository) Create(ctx context.Context, request *domain.ContactRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	request.ID = r.s.nextID(kindContactRequest)
	request.CreatedAt = r.s.stamp(request.CreatedAt)
	request.UpdatedAt = r.s.stamp(request.UpdatedAt)
	if request.Status == "" {
		request.Status = domain.ContactStatusNew
	}
	r.s.contactRequests[request.ID] = *request
	return nil
}

func (r *contactRequestRepository) List(ctx context.Context) ([]*domain.ContactRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	requests := make([]*domain.ContactRequest, 0, len(r.s.contactRequests))
	for _, c := range r.s.contactRequests {
		c := c
		requests = append(requests, &c)
	}
	sort.Slice(requests, func(i, j int) bool {
		return newerFirst(requests[i].CreatedAt, requests[i].ID, requests[j].CreatedAt, requests[j].ID)
	})
	return requests, nil
}

func (r *contactRequestRepository) UpdateStatus(ctx context.Context, id int64, status domain.ContactStatus, updatedAt time.Time) (*domain.ContactRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.contactRequests[id]
	if !ok {
		return nil, repository.ErrContactRequestNotFound
	}
	c.Status = status
	c.UpdatedAt = r.s.stamp(updatedAt)
	r.s.contactRequests[id] = c
	return &c, nil
}
