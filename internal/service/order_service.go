package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/events"
	"madera-precisa/internal/logger"
	"madera-precisa/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxOrderNumberAttempts bounds retries after an order number collision
const maxOrderNumberAttempts = 5

var (
	ErrEmptyOrder              = errors.New("order must contain at least one item")
	ErrInvalidQuantity         = errors.New("item quantity must be at least 1")
	ErrInvalidPrice            = errors.New("price must not be negative")
	ErrInvalidStatus           = errors.New("invalid status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// StatusPolicy decides which order status transitions are accepted
type StatusPolicy string

const (
	// StatusPolicyFree accepts any transition between known statuses
	StatusPolicyFree StatusPolicy = "free"
	// StatusPolicyForward only moves forward through fulfilment; cancelled is
	// reachable from any status before delivered
	StatusPolicyForward StatusPolicy = "forward"
)

// OrderConfig holds pricing and policy settings of the order engine
type OrderConfig struct {
	NumberPrefix          string
	TaxRate               decimal.Decimal
	ShippingFlat          domain.Money
	FreeShippingThreshold domain.Money
	StockPolicy           repository.StockPolicy
	StatusPolicy          StatusPolicy
}

// DefaultOrderConfig returns the storefront defaults: MP prefix, 16% tax,
// 500 flat shipping waived above 5000, backorders allowed, free transitions
func DefaultOrderConfig() OrderConfig {
	return OrderConfig{
		NumberPrefix:          "MP",
		TaxRate:               decimal.RequireFromString("0.16"),
		ShippingFlat:          domain.MoneyFromInt(500),
		FreeShippingThreshold: domain.MoneyFromInt(5000),
		StockPolicy:           repository.StockPolicyBackorder,
		StatusPolicy:          StatusPolicyFree,
	}
}

// CreateOrderInput is a validated checkout: addresses plus cart lines.
// A nil BillingAddress reuses the shipping address.
type CreateOrderInput struct {
	UserID             *string
	ShippingAddress    domain.Address
	BillingAddress     *domain.Address
	Items              []domain.LineItem
	PaymentReferenceID *string
	EstimatedDelivery  *time.Time
}

// UpdateStatusInput is an order status change; nil tracking fields are kept
type UpdateStatusInput struct {
	Status         domain.OrderStatus
	TrackingNumber *string
	Carrier        *string
}

// OrderService defines the interface for order business logic
type OrderService interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.OrderWithItems, error)
	GetOrder(ctx context.Context, id int64) (*domain.OrderWithItems, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.OrderWithItems, error)
	ListUserOrders(ctx context.Context, userID string) ([]*domain.OrderWithItems, error)
	UpdateOrderStatus(ctx context.Context, id int64, input UpdateStatusInput) (*domain.Order, error)
	UpdateOrderPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus, paymentReferenceID *string) (*domain.Order, error)
}

type orderService struct {
	orders    repository.OrderRepository
	publisher events.Publisher
	cfg       OrderConfig
	now       func() time.Time
	suffix    func() int
	logger    *zap.Logger
}

// OrderServiceOption configures an order service
type OrderServiceOption func(*orderService)

// WithOrderClock replaces time.Now
func WithOrderClock(now func() time.Time) OrderServiceOption {
	return func(s *orderService) {
		s.now = now
	}
}

// WithOrderNumberSuffix replaces the random six-digit order number suffix
func WithOrderNumberSuffix(suffix func() int) OrderServiceOption {
	return func(s *orderService) {
		s.suffix = suffix
	}
}

// NewOrderService creates a new instance of OrderService.
// A nil publisher disables events.
func NewOrderService(
	orders repository.OrderRepository,
	publisher events.Publisher,
	cfg OrderConfig,
	logger *zap.Logger,
	opts ...OrderServiceOption,
) OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	s := &orderService{
		orders:    orders,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		suffix:    func() int { return rand.IntN(1_000_000) },
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateOrderNumber formats PREFIX-YEAR-NNNNNN
func GenerateOrderNumber(prefix string, now time.Time, suffix int) string {
	if suffix < 0 {
		suffix = -suffix
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, now.Year(), suffix%1_000_000)
}

// ComputeTotals derives subtotal, tax, shipping and total from cart lines.
// Shipping is waived when the subtotal is strictly above the threshold.
func ComputeTotals(items []domain.LineItem, cfg OrderConfig) domain.OrderTotals {
	subtotal := domain.Zero
	for _, item := range items {
		subtotal = subtotal.Plus(item.Price.Times(item.Quantity))
	}

	tax := subtotal.ApplyRate(cfg.TaxRate)

	shipping := cfg.ShippingFlat
	if subtotal.GreaterThan(cfg.FreeShippingThreshold.Decimal) {
		shipping = domain.Zero
	}

	return domain.OrderTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Plus(tax).Plus(shipping),
	}
}

// CanTransition reports whether policy accepts moving an order from one status to another
func CanTransition(policy StatusPolicy, from, to domain.OrderStatus) bool {
	if policy != StatusPolicyForward || from == to {
		return true
	}
	if from == domain.OrderStatusDelivered || from == domain.OrderStatusCancelled {
		return false
	}
	if to == domain.OrderStatusCancelled {
		return true
	}
	return statusRank(to) > statusRank(from)
}

func statusRank(s domain.OrderStatus) int {
	for i, known := range domain.OrderStatuses {
		if known == s {
			return i
		}
	}
	return -1
}

// CreateOrder validates the cart, computes totals and places the order with
// its items and stock decrements as one unit
func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.OrderWithItems, error) {
	if err := validateLineItems(input.Items); err != nil {
		return nil, err
	}

	totals := ComputeTotals(input.Items, s.cfg)

	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	now := s.now()
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order := &domain.Order{
			OrderNumber:        GenerateOrderNumber(s.cfg.NumberPrefix, now, s.suffix()),
			UserID:             input.UserID,
			Status:             domain.OrderStatusPending,
			PaymentStatus:      domain.PaymentStatusPending,
			Subtotal:           totals.Subtotal,
			Tax:                totals.Tax,
			Shipping:           totals.Shipping,
			Total:              totals.Total,
			ShippingAddress:    input.ShippingAddress,
			BillingAddress:     billing,
			PaymentReferenceID: input.PaymentReferenceID,
			EstimatedDelivery:  input.EstimatedDelivery,
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		items := make([]*domain.OrderItem, 0, len(input.Items))
		for _, line := range input.Items {
			productID := line.ProductID
			items = append(items, &domain.OrderItem{
				ProductID: &productID,
				Quantity:  line.Quantity,
				Price:     line.Price,
				CreatedAt: now,
			})
		}

		err := s.orders.Place(ctx, order, items, s.cfg.StockPolicy)
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			s.logger.Warn("Order number collision, retrying",
				zap.String("order_number", order.OrderNumber),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to place order: %w", err)
		}

		s.logger.Info("Order placed",
			logger.Order(order),
			zap.Int("items", len(items)),
		)
		s.publish(ctx, events.NewOrderCreated(order, len(items), now))

		placed, err := s.orders.FindByID(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load placed order: %w", err)
		}
		return placed, nil
	}

	return nil, fmt.Errorf("failed to allocate order number after %d attempts: %w",
		maxOrderNumberAttempts, repository.ErrDuplicateOrderNumber)
}

func validateLineItems(items []domain.LineItem) error {
	if len(items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: product %d has quantity %d", ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("%w: product %d has price %s", ErrInvalidPrice, item.ProductID, item.Price)
		}
	}
	return nil
}

func (s *orderService) GetOrder(ctx context.Context, id int64) (*domain.OrderWithItems, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// GetOrderByNumber is an exact match on the order number
func (s *orderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.OrderWithItems, error) {
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get order by number: %w", err)
	}
	return order, nil
}

func (s *orderService) ListUserOrders(ctx context.Context, userID string) ([]*domain.OrderWithItems, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus overwrites the status, keeps tracking fields unless
// supplied and stamps the delivery time when the order becomes delivered
func (s *orderService) UpdateOrderStatus(ctx context.Context, id int64, input UpdateStatusInput) (*domain.Order, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	now := s.now()
	var previous domain.OrderStatus

	update := repository.OrderStatusUpdate{
		Status:         input.Status,
		TrackingNumber: trimmed(input.TrackingNumber),
		Carrier:        trimmed(input.Carrier),
		UpdatedAt:      now,
		Allow: func(current domain.OrderStatus) error {
			previous = current
			if !CanTransition(s.cfg.StatusPolicy, current, input.Status) {
				return fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, current, input.Status)
			}
			return nil
		},
	}
	if input.Status == domain.OrderStatusDelivered {
		update.DeliveredAt = &now
	}

	order, err := s.orders.UpdateStatus(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info("Order status updated",
		logger.Order(order),
		zap.String("from", string(previous)),
	)
	s.publish(ctx, events.NewOrderStatusChanged(order, previous, now))

	return order, nil
}

// UpdateOrderPaymentStatus is independent of the fulfilment status
func (s *orderService) UpdateOrderPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus, paymentReferenceID *string) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := s.orders.UpdatePaymentStatus(ctx, id, status, trimmed(paymentReferenceID), s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	s.logger.Info("Order payment status updated", logger.Order(order))
	return order, nil
}

// publish never fails the caller; the order is already committed
func (s *orderService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("type", event.Type),
			zap.String("order_number", event.OrderNumber),
			zap.Error(err),
		)
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
