package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"madera-precisa/internal/domain"
)

// ErrNotFound is wrapped by every per-entity not-found error
var ErrNotFound = errors.New("not found")

var (
	ErrUserNotFound           = fmt.Errorf("user %w", ErrNotFound)
	ErrCategoryNotFound       = fmt.Errorf("category %w", ErrNotFound)
	ErrProductNotFound        = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound          = fmt.Errorf("order %w", ErrNotFound)
	ErrContactRequestNotFound = fmt.Errorf("contact request %w", ErrNotFound)

	ErrCategoryAlreadyExists = errors.New("category with this slug already exists")
	ErrDuplicateOrderNumber  = errors.New("order number already in use")
	ErrInsufficientStock     = errors.New("insufficient stock")
)

// StockPolicy decides what happens when an order asks for more than is in stock
type StockPolicy string

const (
	// StockPolicyBackorder lets stock quantities go negative
	StockPolicyBackorder StockPolicy = "backorder"
	// StockPolicyStrict rejects the whole order with ErrInsufficientStock
	StockPolicyStrict StockPolicy = "strict"
)

// ProductFilter narrows a product listing. Zero values mean "no filter".
type ProductFilter struct {
	CategoryID *int64
	Search     string
	Featured   *bool
	Limit      int
}

// OrderStatusUpdate describes a status change applied by OrderRepository.UpdateStatus
type OrderStatusUpdate struct {
	Status         domain.OrderStatus
	TrackingNumber *string
	Carrier        *string
	DeliveredAt    *time.Time
	UpdatedAt      time.Time
	// Allow is called with the current status while the order is locked;
	// a non-nil error aborts the update
	Allow func(current domain.OrderStatus) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Upsert(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdatePaymentInfo(ctx context.Context, id, customerID string, subscriptionID *string) (*domain.User, error)
}

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	List(ctx context.Context) ([]*domain.Category, error)
	FindByID(ctx context.Context, id int64) (*domain.Category, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Category, error)
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id int64) (*domain.ProductWithCategory, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.ProductWithCategory, error)
	DecrementStock(ctx context.Context, id int64, quantity int) error
}

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// Place stores the order, its items and the matching stock decrements
	// as one unit. On error nothing is persisted.
	Place(ctx context.Context, order *domain.Order, items []*domain.OrderItem, policy StockPolicy) error
	FindByID(ctx context.Context, id int64) (*domain.OrderWithItems, error)
	FindByNumber(ctx context.Context, orderNumber string) (*domain.OrderWithItems, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.OrderWithItems, error)
	UpdateStatus(ctx context.Context, id int64, update OrderStatusUpdate) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus, paymentReferenceID *string, updatedAt time.Time) (*domain.Order, error)
}

// ContactRequestRepository defines the interface for contact request data access
type ContactRequestRepository interface {
	Create(ctx context.Context, request *domain.ContactRequest) error
	List(ctx context.Context) ([]*domain.ContactRequest, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ContactStatus, updatedAt time.Time) (*domain.ContactRequest, error)
}

// Store groups the repositories of one backing store
type Store interface {
	Users() UserRepository
	Categories() CategoryRepository
	Products() ProductRepository
	Orders() OrderRepository
	ContactRequests() ContactRequestRepository
	Ping(ctx context.Context) error
	Close() error
}

// InsufficientStock builds an ErrInsufficientStock with the offending product
func InsufficientStock(productID int64, available, requested int) error {
	return fmt.Errorf("%w: product %d has %d, requested %d", ErrInsufficientStock, productID, available, requested)
}

// RequestedQuantities sums quantities per product across items
func RequestedQuantities(items []*domain.OrderItem) (map[int64]int, []int64) {
	totals := make(map[int64]int, len(items))
	order := make([]int64, 0, len(items))
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		id := *item.ProductID
		if _, seen := totals[id]; !seen {
			order = append(order, id)
		}
		totals[id] += item.Quantity
	}
	return totals, order
}
