package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"madera-precisa/internal/domain"
)

const orderColumns = `
	id, order_number, user_id, status, payment_status, subtotal, tax, shipping, total,
	shipping_address, billing_address, payment_reference_id, tracking_number, carrier,
	estimated_delivery, delivered_at, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Place inserts the order, its items and the stock decrements in one transaction.
// Products are locked in id order so concurrent placements cannot deadlock.
func (r *orderRepository) Place(ctx context.Context, order *domain.Order, items []*domain.OrderItem, policy StockPolicy) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		requested, productIDs := RequestedQuantities(items)
		sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

		for _, id := range productIDs {
			var stock int
			err := tx.QueryRowContext(ctx,
				`SELECT stock_quantity FROM products WHERE id = $1 FOR UPDATE`, id,
			).Scan(&stock)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrProductNotFound
				}
				return fmt.Errorf("failed to lock product: %w", err)
			}
			if policy == StockPolicyStrict && stock < requested[id] {
				return InsufficientStock(id, stock, requested[id])
			}
		}

		now := time.Now()
		if order.CreatedAt.IsZero() {
			order.CreatedAt = now
		}
		if order.UpdatedAt.IsZero() {
			order.UpdatedAt = now
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (
				order_number, user_id, status, payment_status, subtotal, tax, shipping, total,
				shipping_address, billing_address, payment_reference_id, tracking_number, carrier,
				estimated_delivery, delivered_at, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
			RETURNING id
		`,
			order.OrderNumber,
			order.UserID,
			order.Status,
			order.PaymentStatus,
			order.Subtotal,
			order.Tax,
			order.Shipping,
			order.Total,
			order.ShippingAddress,
			order.BillingAddress,
			order.PaymentReferenceID,
			order.TrackingNumber,
			order.Carrier,
			order.EstimatedDelivery,
			order.DeliveredAt,
			order.CreatedAt,
			order.UpdatedAt,
		).Scan(&order.ID)
		if err != nil {
			if isUniqueViolation(err, "orders_order_number_key") {
				return ErrDuplicateOrderNumber
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		for _, item := range items {
			item.OrderID = order.ID
			if item.CreatedAt.IsZero() {
				item.CreatedAt = order.CreatedAt
			}
			err := tx.QueryRowContext(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, price, created_at)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, item.OrderID, item.ProductID, item.Quantity, item.Price, item.CreatedAt).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		for _, item := range items {
			if item.ProductID == nil {
				continue
			}
			if err := decrementStock(ctx, tx, *item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		return nil
	})
}

// FindByID retrieves an order with its items and their products
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.OrderWithItems, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByNumber retrieves an order by its human-readable number
func (r *orderRepository) FindByNumber(ctx context.Context, orderNumber string) (*domain.OrderWithItems, error) {
	return r.findOne(ctx, "order_number = $1", orderNumber)
}

func (r *orderRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.OrderWithItems, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	items, err := r.items(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	return &domain.OrderWithItems{Order: *order, Items: items}, nil
}

// ListByUser retrieves all orders of a user, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.OrderWithItems, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.OrderWithItems{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, &domain.OrderWithItems{Order: *order})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	rows.Close()

	for _, order := range orders {
		order.Items, err = r.items(ctx, order.ID)
		if err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// UpdateStatus locks the order row, consults update.Allow and applies the change
func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, update OrderStatusUpdate) (*domain.Order, error) {
	var updated *domain.Order

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var current domain.OrderStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if update.Allow != nil {
			if err := update.Allow(current); err != nil {
				return err
			}
		}

		if update.UpdatedAt.IsZero() {
			update.UpdatedAt = time.Now()
		}

		updated, err = scanOrder(tx.QueryRowContext(ctx, `
			UPDATE orders
			SET status = $2,
			    tracking_number = COALESCE($3, tracking_number),
			    carrier = COALESCE($4, carrier),
			    delivered_at = COALESCE($5, delivered_at),
			    updated_at = $6
			WHERE id = $1
			RETURNING `+orderColumns,
			id, update.Status, update.TrackingNumber, update.Carrier, update.DeliveredAt, update.UpdatedAt,
		))
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// UpdatePaymentStatus overwrites the payment status and, when given, the payment reference
func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus, paymentReferenceID *string, updatedAt time.Time) (*domain.Order, error) {
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		UPDATE orders
		SET payment_status = $2,
		    payment_reference_id = COALESCE($3, payment_reference_id),
		    updated_at = $4
		WHERE id = $1
		RETURNING `+orderColumns,
		id, status, paymentReferenceID, updatedAt,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}

	return order, nil
}

func (r *orderRepository) items(ctx context.Context, orderID int64) ([]domain.OrderItemWithProduct, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price, oi.created_at,
			` + productColumns + `
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItemWithProduct{}
	for rows.Next() {
		item, err := scanOrderItemWithProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, *item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.PaymentStatus,
		&order.Subtotal,
		&order.Tax,
		&order.Shipping,
		&order.Total,
		&order.ShippingAddress,
		&order.BillingAddress,
		&order.PaymentReferenceID,
		&order.TrackingNumber,
		&order.Carrier,
		&order.EstimatedDelivery,
		&order.DeliveredAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// nullableProduct receives the LEFT JOINed product columns of an order item
type nullableProduct struct {
	id            sql.NullInt64
	name          sql.NullString
	description   sql.NullString
	price         *domain.Money
	originalPrice *domain.Money
	categoryID    *int64
	imageURL      sql.NullString
	images        domain.StringList
	inStock       sql.NullBool
	stockQuantity sql.NullInt64
	featured      sql.NullBool
	tags          domain.StringList
	dimensions    *string
	material      *string
	color         *string
	weight        *string
	createdAt     sql.NullTime
	updatedAt     sql.NullTime
}

func (n *nullableProduct) targets() []interface{} {
	return []interface{}{
		&n.id, &n.name, &n.description, &n.price, &n.originalPrice, &n.categoryID,
		&n.imageURL, &n.images, &n.inStock, &n.stockQuantity, &n.featured, &n.tags,
		&n.dimensions, &n.material, &n.color, &n.weight, &n.createdAt, &n.updatedAt,
	}
}

func (n *nullableProduct) product() *domain.Product {
	if !n.id.Valid {
		return nil
	}
	p := &domain.Product{
		ID:            n.id.Int64,
		Name:          n.name.String,
		Description:   n.description.String,
		OriginalPrice: n.originalPrice,
		CategoryID:    n.categoryID,
		ImageURL:      n.imageURL.String,
		Images:        n.images,
		InStock:       n.inStock.Bool,
		StockQuantity: int(n.stockQuantity.Int64),
		Featured:      n.featured.Bool,
		Tags:          n.tags,
		Dimensions:    n.dimensions,
		Material:      n.material,
		Color:         n.color,
		Weight:        n.weight,
		CreatedAt:     n.createdAt.Time,
		UpdatedAt:     n.updatedAt.Time,
	}
	if n.price != nil {
		p.Price = *n.price
	}
	return p
}

func scanOrderItemWithProduct(row rowScanner) (*domain.OrderItemWithProduct, error) {
	item := &domain.OrderItemWithProduct{}
	var product nullableProduct

	targets := append([]interface{}{
		&item.ID,
		&item.OrderID,
		&item.ProductID,
		&item.Quantity,
		&item.Price,
		&item.CreatedAt,
	}, product.targets()...)

	if err := row.Scan(targets...); err != nil {
		return nil, err
	}

	item.Product = product.product()
	return item, nil
}
