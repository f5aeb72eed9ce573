// Package events carries order domain events to Kafka and to websocket
// clients tracking an order.
package events

import (
	"context"
	"errors"
	"time"

	"madera-precisa/internal/domain"

	"github.com/google/uuid"
)

const (
	OrderCreatedTopic       = "order.created"
	OrderStatusChangedTopic = "order.status_changed"
)

// Event is the envelope of every published event. Type doubles as the topic.
type Event struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	OrderNumber string      `json:"orderNumber"`
	OccurredAt  time.Time   `json:"occurredAt"`
	Data        interface{} `json:"data"`
}

// OrderCreated is the payload of an order.created event
type OrderCreated struct {
	OrderID   int64        `json:"orderId"`
	UserID    *string      `json:"userId"`
	Status    string       `json:"status"`
	Total     domain.Money `json:"total"`
	ItemCount int          `json:"itemCount"`
	CreatedAt time.Time    `json:"createdAt"`
}

// OrderStatusChanged is the payload of an order.status_changed event
type OrderStatusChanged struct {
	OrderID        int64      `json:"orderId"`
	From           string     `json:"from"`
	To             string     `json:"to"`
	TrackingNumber *string    `json:"trackingNumber"`
	Carrier        *string    `json:"carrier"`
	DeliveredAt    *time.Time `json:"deliveredAt"`
}

// NewOrderCreated builds the event for a freshly placed order
func NewOrderCreated(order *domain.Order, itemCount int, now time.Time) Event {
	return newEvent(OrderCreatedTopic, order.OrderNumber, OrderCreated{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    string(order.Status),
		Total:     order.Total,
		ItemCount: itemCount,
		CreatedAt: order.CreatedAt,
	}, now)
}

// NewOrderStatusChanged builds the event for a status transition
func NewOrderStatusChanged(order *domain.Order, from domain.OrderStatus, now time.Time) Event {
	return newEvent(OrderStatusChangedTopic, order.OrderNumber, OrderStatusChanged{
		OrderID:        order.ID,
		From:           string(from),
		To:             string(order.Status),
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		DeliveredAt:    order.DeliveredAt,
	}, now)
}

func newEvent(eventType, orderNumber string, data interface{}, now time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		OrderNumber: orderNumber,
		OccurredAt:  now.UTC(),
		Data:        data,
	}
}

// Publisher delivers events to one destination
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }

// Fanout delivers each event to every publisher and joins their errors
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
