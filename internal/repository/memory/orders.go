package memory

import (
	"context"
	"sort"
	"time"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"
)

type orderRepository struct {
	s *Store
}

// Place validates every reference and the stock policy before touching any
// map, then inserts the order, its items and the stock decrements under one
// write lock. A rejected order leaves the store unchanged.
func (r *orderRepository) Place(ctx context.Context, order *domain.Order, items []*domain.OrderItem, policy repository.StockPolicy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, taken := r.s.orderNumbers[order.OrderNumber]; taken {
		return repository.ErrDuplicateOrderNumber
	}

	requested, productIDs := repository.RequestedQuantities(items)
	for _, id := range productIDs {
		p, ok := r.s.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		if policy == repository.StockPolicyStrict && p.StockQuantity < requested[id] {
			return repository.InsufficientStock(id, p.StockQuantity, requested[id])
		}
	}

	order.ID = r.s.nextID(kindOrder)
	order.CreatedAt = r.s.stamp(order.CreatedAt)
	order.UpdatedAt = r.s.stamp(order.UpdatedAt)
	r.s.orders[order.ID] = *order
	r.s.orderNumbers[order.OrderNumber] = order.ID

	for _, item := range items {
		item.ID = r.s.nextID(kindOrderItem)
		item.OrderID = order.ID
		item.CreatedAt = r.s.stamp(item.CreatedAt)
		r.s.orderItems[item.ID] = *item
	}

	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		// existence was checked above
		_ = r.s.decrementStock(*item.ProductID, item.Quantity)
	}

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.OrderWithItems, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return r.s.orderWithItems(o), nil
}

func (r *orderRepository) FindByNumber(ctx context.Context, orderNumber string) (*domain.OrderWithItems, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.orderNumbers[orderNumber]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return r.s.orderWithItems(o), nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.OrderWithItems, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	orders := []*domain.OrderWithItems{}
	for _, o := range r.s.orders {
		if o.UserID == nil || *o.UserID != userID {
			continue
		}
		orders = append(orders, r.s.orderWithItems(o))
	}
	sort.Slice(orders, func(i, j int) bool {
		return newerFirst(orders[i].CreatedAt, orders[i].ID, orders[j].CreatedAt, orders[j].ID)
	})
	return orders, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, update repository.OrderStatusUpdate) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if update.Allow != nil {
		if err := update.Allow(o.Status); err != nil {
			return nil, err
		}
	}

	o.Status = update.Status
	if update.TrackingNumber != nil {
		o.TrackingNumber = update.TrackingNumber
	}
	if update.Carrier != nil {
		o.Carrier = update.Carrier
	}
	if update.DeliveredAt != nil {
		o.DeliveredAt = update.DeliveredAt
	}
	o.UpdatedAt = r.s.stamp(update.UpdatedAt)
	r.s.orders[id] = o
	return &o, nil
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus, paymentReferenceID *string, updatedAt time.Time) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.PaymentStatus = status
	if paymentReferenceID != nil {
		o.PaymentReferenceID = paymentReferenceID
	}
	o.UpdatedAt = r.s.stamp(updatedAt)
	r.s.orders[id] = o
	return &o, nil
}

func newerFirst(aCreated time.Time, aID int64, bCreated time.Time, bID int64) bool {
	if !aCreated.Equal(bCreated) {
		return aCreated.After(bCreated)
	}
	return aID > bID
}

func sortItems(items []domain.OrderItemWithProduct) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
}
