package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every order status in fulfilment order, cancelled last
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentStatus is the payment state of an order, independent of OrderStatus
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Address is a shipping or billing address as captured at checkout
type Address struct {
	FullName   string `json:"fullName" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone,omitempty" validate:"max=40"`
	Address    string `json:"address" validate:"required,max=500"`
	City       string `json:"city,omitempty" validate:"max=120"`
	State      string `json:"state,omitempty" validate:"max=120"`
	PostalCode string `json:"postalCode,omitempty" validate:"max=20"`
}

func (a Address) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode address: %w", err)
	}
	return string(b), nil
}

func (a *Address) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// Order represents a placed order
type Order struct {
	ID                 int64         `json:"id" db:"id"`
	OrderNumber        string        `json:"orderNumber" db:"order_number"`
	UserID             *string       `json:"userId" db:"user_id"`
	Status             OrderStatus   `json:"status" db:"status"`
	PaymentStatus      PaymentStatus `json:"paymentStatus" db:"payment_status"`
	Subtotal           Money         `json:"subtotal" db:"subtotal"`
	Tax                Money         `json:"tax" db:"tax"`
	Shipping           Money         `json:"shipping" db:"shipping"`
	Total              Money         `json:"total" db:"total"`
	ShippingAddress    Address       `json:"shippingAddress" db:"shipping_address"`
	BillingAddress     Address       `json:"billingAddress" db:"billing_address"`
	PaymentReferenceID *string       `json:"paymentReferenceId" db:"payment_reference_id"`
	TrackingNumber     *string       `json:"trackingNumber" db:"tracking_number"`
	Carrier            *string       `json:"carrier" db:"carrier"`
	EstimatedDelivery  *time.Time    `json:"estimatedDelivery" db:"estimated_delivery"`
	DeliveredAt        *time.Time    `json:"deliveredAt" db:"delivered_at"`
	CreatedAt          time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time     `json:"updatedAt" db:"updated_at"`
}

// OrderItem is one product/quantity/price line of an order, fixed at creation
type OrderItem struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"orderId" db:"order_id"`
	ProductID *int64    `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     Money     `json:"price" db:"price"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// LineTotal is the unit price snapshot times quantity
func (i OrderItem) LineTotal() Money {
	return i.Price.Times(i.Quantity)
}

// OrderItemWithProduct is an order item joined with its product.
// Product is nil when the referenced product no longer exists.
type OrderItemWithProduct struct {
	OrderItem
	Product *Product `json:"product"`
}

// OrderWithItems is an order joined with its items
type OrderWithItems struct {
	Order
	Items []OrderItemWithProduct `json:"items"`
}

// LineItem is a cart line submitted at checkout
type LineItem struct {
	ProductID int64
	Quantity  int
	Price     Money
}

// OrderTotals is the monetary breakdown of an order
type OrderTotals struct {
	Subtotal Money
	Tax      Money
	Shipping Money
	Total    Money
}
