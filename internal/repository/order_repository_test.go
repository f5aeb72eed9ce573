package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"madera-precisa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(number string, userID *string) *domain.Order {
	address := domain.Address{
		FullName: "Ana López",
		Email:    "ana@example.com",
		Address:  "Av. Reforma 100",
		City:     "CDMX",
	}
	return &domain.Order{
		OrderNumber:     number,
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		Subtotal:        domain.MustMoney("3600.00"),
		Tax:             domain.MustMoney("576.00"),
		Shipping:        domain.MustMoney("500.00"),
		Total:           domain.MustMoney("4676.00"),
		ShippingAddress: address,
		BillingAddress:  address,
	}
}

func lineItem(productID int64, quantity int, price string) *domain.OrderItem {
	return &domain.OrderItem{ProductID: &productID, Quantity: quantity, Price: domain.MustMoney(price)}
}

func mustCreateUser(t *testing.T, id string) {
	t.Helper()
	_, err := NewUserRepository(testDB).Upsert(context.Background(), domain.NewUser(id, ptr(id+"@example.com"), nil, nil, nil, "", time.Now()))
	require.NoError(t, err)
}

func TestOrderRepositoryClosetScenario(t *testing.T) {
	resetTables(t)
	repo := NewOrderRepository(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	closet := mustCreateCategory(t, "Closet", "closet")
	estante := mustCreateProduct(t, domain.ProductInput{
		Name:          "Estante",
		Price:         domain.MustMoney("1800.00"),
		CategoryID:    &closet.ID,
		StockQuantity: ptr(5),
	}, time.Time{})

	order := newTestOrder("MP-2025-000001", nil)
	require.NoError(t, repo.Place(ctx, order, []*domain.OrderItem{lineItem(estante.ID, 2, "1800.00")}, StockPolicyBackorder))
	assert.NotZero(t, order.ID)

	stored, err := products.FindByID(ctx, estante.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.StockQuantity)

	full, err := repo.FindByNumber(ctx, "MP-2025-000001")
	require.NoError(t, err)
	require.Len(t, full.Items, 1)
	assert.Equal(t, "1800.00", full.Items[0].Price.String())
	require.NotNil(t, full.Items[0].Product)
	assert.Equal(t, "Estante", full.Items[0].Product.Name)
	assert.Equal(t, "CDMX", full.ShippingAddress.City)
	assert.Equal(t, "4676.00", full.Total.String())

	again, err := repo.FindByNumber(ctx, "MP-2025-000001")
	require.NoError(t, err)
	assert.Equal(t, full, again)

	_, err = repo.FindByNumber(ctx, "NONEXISTENT-000")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepositoryPlaceIsAtomic(t *testing.T) {
	resetTables(t)
	repo := NewOrderRepository(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	mesa := mustCreateProduct(t, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("100.00"), StockQuantity: ptr(4)}, time.Time{})

	err := repo.Place(ctx, newTestOrder("MP-2025-000002", nil),
		[]*domain.OrderItem{lineItem(mesa.ID, 1, "100.00"), lineItem(mesa.ID+99, 1, "5.00")}, StockPolicyBackorder)
	require.ErrorIs(t, err, ErrProductNotFound)

	stored, err := products.FindByID(ctx, mesa.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.StockQuantity)

	_, err = repo.FindByNumber(ctx, "MP-2025-000002")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	var items int
	require.NoError(t, testDB.QueryRow(`SELECT COUNT(*) FROM order_items`).Scan(&items))
	assert.Zero(t, items)
}

func TestOrderRepositoryStockPolicies(t *testing.T) {
	resetTables(t)
	repo := NewOrderRepository(testDB)
	products := NewProductRepository(testDB)
	ctx := context.Background()

	mesa := mustCreateProduct(t, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("100.00"), StockQuantity: ptr(3)}, time.Time{})

	err := repo.Place(ctx, newTestOrder("MP-2025-000003", nil),
		[]*domain.OrderItem{lineItem(mesa.ID, 2, "100.00"), lineItem(mesa.ID, 2, "100.00")}, StockPolicyStrict)
	require.ErrorIs(t, err, ErrInsufficientStock)

	require.NoError(t, repo.Place(ctx, newTestOrder("MP-2025-000004", nil),
		[]*domain.OrderItem{lineItem(mesa.ID, 5, "100.00")}, StockPolicyBackorder))

	stored, err := products.FindByID(ctx, mesa.ID)
	require.NoError(t, err)
	assert.Equal(t, -2, stored.StockQuantity)
}

func TestOrderRepositoryDuplicateNumber(t *testing.T) {
	resetTables(t)
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	mesa := mustCreateProduct(t, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("100.00"), StockQuantity: ptr(3)}, time.Time{})

	require.NoError(t, repo.Place(ctx, newTestOrder("MP-2025-000005", nil), []*domain.OrderItem{lineItem(mesa.ID, 1, "100.00")}, StockPolicyBackorder))
	err := repo.Place(ctx, newTestOrder("MP-2025-000005", nil), []*domain.OrderItem{lineItem(mesa.ID, 1, "100.00")}, StockPolicyBackorder)
	assert.ErrorIs(t, err, ErrDuplicateOrderNumber)

	stored, err := NewProductRepository(testDB).FindByID(ctx, mesa.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.StockQuantity)
}

func TestOrderRepositoryConcurrentStrictPlacements(t *testing.T) {
	resetTables(t)
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	silla := mustCreateProduct(t, domain.ProductInput{Name: "Silla", Price: domain.MustMoney("10.00"), StockQuantity: ptr(5)}, time.Time{})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := newTestOrder(fmt.Sprintf("MP-2025-C%05d", i), nil)
			err := repo.Place(ctx, order, []*domain.OrderItem{lineItem(silla.ID, 1, "10.00")}, StockPolicyStrict)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	stored, err := NewProductRepository(testDB).FindByID(ctx, silla.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.StockQuantity)
}

func TestOrderRepositoryUpdateStatus(t *testing.T) {
	resetTables(t)
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	mesa := mustCreateProduct(t, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("100.00")}, time.Time{})
	order := newTestOrder("MP-2025-000006", nil)
	require.NoError(t, repo.Place(ctx, order, []*domain.OrderItem{lineItem(mesa.ID, 1, "100.00")}, StockPolicyBackorder))

	shipped, err := repo.UpdateStatus(ctx, order.ID, OrderStatusUpdate{
		Status:         domain.OrderStatusShipped,
		TrackingNumber: ptr("TRK-1"),
		Carrier:        ptr("Estafeta"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, shipped.Status)
	assert.Nil(t, shipped.DeliveredAt)

	deliveredAt := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	delivered, err := repo.UpdateStatus(ctx, order.ID, OrderStatusUpdate{
		Status:      domain.OrderStatusDelivered,
		DeliveredAt: &deliveredAt,
	})
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)
	assert.True(t, deliveredAt.Equal(*delivered.DeliveredAt))
	assert.Equal(t, "TRK-1", *delivered.TrackingNumber)
	assert.Equal(t, "Estafeta", *delivered.Carrier)

	var seen domain.OrderStatus
	_, err = repo.UpdateStatus(ctx, order.ID, OrderStatusUpdate{
		Status: domain.OrderStatusPending,
		Allow: func(current domain.OrderStatus) error {
			seen = current
			return ErrInsufficientStock
		},
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, domain.OrderStatusDelivered, seen)

	_, err = repo.UpdateStatus(ctx, order.ID+50, OrderStatusUpdate{Status: domain.OrderStatusShipped})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepositoryUpdatePaymentStatus(t *testing.T) {
	resetTables(t)
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	mesa := mustCreateProduct(t, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("100.00")}, time.Time{})
	order := newTestOrder("MP-2025-000007", nil)
	require.NoError(t, repo.Place(ctx, order, []*domain.OrderItem{lineItem(mesa.ID, 1, "100.00")}, StockPolicyBackorder))

	paid, err := repo.UpdatePaymentStatus(ctx, order.ID, domain.PaymentStatusPaid, ptr("pi_123"), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, domain.OrderStatusPending, paid.Status)
	assert.Equal(t, "pi_123", *paid.PaymentReferenceID)

	refunded, err := repo.UpdatePaymentStatus(ctx, order.ID, domain.PaymentStatusRefunded, nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", *refunded.PaymentReferenceID)

	_, err = repo.UpdatePaymentStatus(ctx, 999, domain.PaymentStatusPaid, nil, time.Time{})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderRepositoryListByUserAndDanglingProducts(t *testing.T) {
	resetTables(t)
	repo := NewOrderRepository(testDB)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mustCreateUser(t, "user-1")
	mustCreateUser(t, "user-2")
	mesa := mustCreateProduct(t, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("100.00")}, time.Time{})

	first := newTestOrder("MP-2025-000008", ptr("user-1"))
	first.CreatedAt = base
	require.NoError(t, repo.Place(ctx, first, []*domain.OrderItem{lineItem(mesa.ID, 1, "100.00")}, StockPolicyBackorder))

	other := newTestOrder("MP-2025-000009", ptr("user-2"))
	require.NoError(t, repo.Place(ctx, other, []*domain.OrderItem{lineItem(mesa.ID, 1, "100.00")}, StockPolicyBackorder))

	second := newTestOrder("MP-2025-000010", ptr("user-1"))
	second.CreatedAt = base.Add(time.Hour)
	require.NoError(t, repo.Place(ctx, second, []*domain.OrderItem{lineItem(mesa.ID, 2, "90.00")}, StockPolicyBackorder))

	orders, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, "90.00", orders[0].Items[0].Price.String())

	_, err = testDB.Exec(`DELETE FROM products WHERE id = $1`, mesa.ID)
	require.NoError(t, err)

	full, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, full.Items, 1)
	assert.Nil(t, full.Items[0].Product)
	assert.Nil(t, full.Items[0].ProductID)

	none, err := repo.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
