// Package memory implements the repositories over in-process maps.
//
// A single RWMutex guards every map, so a compound operation such as order
// placement is atomic with respect to all readers and writers.
package memory

import (
	"context"
	"sync"
	"time"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"
)

type entityKind int

const (
	kindCategory entityKind = iota
	kindProduct
	kindOrder
	kindOrderItem
	kindContactRequest
)

// Store holds all entities in memory, keyed by id, with a monotonic id
// counter per entity kind starting at 1.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users           map[string]domain.User
	categories      map[int64]domain.Category
	products        map[int64]domain.Product
	orders          map[int64]domain.Order
	orderItems      map[int64]domain.OrderItem
	contactRequests map[int64]domain.ContactRequest

	orderNumbers map[string]int64
	lastID       map[entityKind]int64
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces time.Now for timestamps the store fills in itself
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		now:             time.Now,
		users:           make(map[string]domain.User),
		categories:      make(map[int64]domain.Category),
		products:        make(map[int64]domain.Product),
		orders:          make(map[int64]domain.Order),
		orderItems:      make(map[int64]domain.OrderItem),
		contactRequests: make(map[int64]domain.ContactRequest),
		orderNumbers:    make(map[string]int64),
		lastID:          make(map[entityKind]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.Store = (*Store)(nil)

func (s *Store) Users() repository.UserRepository { return &userRepository{s} }

func (s *Store) Categories() repository.CategoryRepository { return &categoryRepository{s} }

func (s *Store) Products() repository.ProductRepository { return &productRepository{s} }

func (s *Store) Orders() repository.OrderRepository { return &orderRepository{s} }

func (s *Store) ContactRequests() repository.ContactRequestRepository {
	return &contactRequestRepository{s}
}

// Ping always succeeds
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op; memory-only state needs no flush
func (s *Store) Close() error { return nil }

// nextID must be called with the write lock held
func (s *Store) nextID(kind entityKind) int64 {
	s.lastID[kind]++
	return s.lastID[kind]
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

// productWithCategory must be called with at least the read lock held
func (s *Store) productWithCategory(p domain.Product) *domain.ProductWithCategory {
	joined := &domain.ProductWithCategory{Product: copyProduct(p)}
	if p.CategoryID != nil {
		if c, ok := s.categories[*p.CategoryID]; ok {
			joined.Category = &c
		}
	}
	return joined
}

// orderWithItems must be called with at least the read lock held
func (s *Store) orderWithItems(o domain.Order) *domain.OrderWithItems {
	full := &domain.OrderWithItems{Order: o, Items: []domain.OrderItemWithProduct{}}
	for _, item := range s.orderItems {
		if item.OrderID != o.ID {
			continue
		}
		joined := domain.OrderItemWithProduct{OrderItem: item}
		if item.ProductID != nil {
			if p, ok := s.products[*item.ProductID]; ok {
				cp := copyProduct(p)
				joined.Product = &cp
			}
		}
		full.Items = append(full.Items, joined)
	}
	sortItems(full.Items)
	return full
}

func copyProduct(p domain.Product) domain.Product {
	if p.Images != nil {
		p.Images = append(domain.StringList(nil), p.Images...)
	}
	if p.Tags != nil {
		p.Tags = append(domain.StringList(nil), p.Tags...)
	}
	return p
}
