package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock advances one second per call so creation times never tie
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTickingClock() *tickingClock {
	return &tickingClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func ptr[T any](v T) *T { return &v }

func cents(v int64) domain.Money { return domain.Money{Decimal: decimal.New(v, -2)} }

func createCategory(t *testing.T, s *Store, name, slug string) *domain.Category {
	t.Helper()
	c := domain.NewCategory(name, slug, nil, nil)
	require.NoError(t, s.Categories().Create(context.Background(), c))
	return c
}

func createProduct(t *testing.T, s *Store, in domain.ProductInput) *domain.Product {
	t.Helper()
	p := domain.NewProduct(in, time.Time{})
	require.NoError(t, s.Products().Create(context.Background(), p))
	return p
}

func placeOrder(t *testing.T, s *Store, number string, userID *string, items ...*domain.OrderItem) (*domain.Order, error) {
	t.Helper()
	order := &domain.Order{
		OrderNumber:   number,
		UserID:        userID,
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		ShippingAddress: domain.Address{
			FullName: "Ana López",
			Email:    "ana@example.com",
			Address:  "Av. Reforma 100",
		},
	}
	err := s.Orders().Place(context.Background(), order, items, repository.StockPolicyBackorder)
	return order, err
}

func item(productID int64, quantity int, price string) *domain.OrderItem {
	return &domain.OrderItem{ProductID: &productID, Quantity: quantity, Price: domain.MustMoney(price)}
}

func TestIDsStartAtOnePerKind(t *testing.T) {
	s := New()
	c := createCategory(t, s, "Closet", "closet")
	p := createProduct(t, s, domain.ProductInput{Name: "Estante", Price: domain.MustMoney("10.00")})
	o, err := placeOrder(t, s, "MP-2025-000001", nil, item(p.ID, 1, "10.00"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), c.ID)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, int64(1), o.ID)

	c2 := createCategory(t, s, "Vestidor", "dressing")
	assert.Equal(t, int64(2), c2.ID)
}

func TestClosetScenario(t *testing.T) {
	s := New()
	ctx := context.Background()

	closet := createCategory(t, s, "Closet", "closet")
	estante := createProduct(t, s, domain.ProductInput{
		Name:          "Estante",
		Price:         domain.MustMoney("1800.00"),
		CategoryID:    &closet.ID,
		StockQuantity: ptr(5),
	})

	order, err := placeOrder(t, s, "MP-2025-123456", nil, item(estante.ID, 2, "1800.00"))
	require.NoError(t, err)

	stored, err := s.Products().FindByID(ctx, estante.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.StockQuantity)

	full, err := s.Orders().FindByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	require.Len(t, full.Items, 1)
	assert.Equal(t, "1800.00", full.Items[0].Price.String())
	require.NotNil(t, full.Items[0].Product)
	assert.Equal(t, "Estante", full.Items[0].Product.Name)
}

func TestFindByNumberUnknownIsNotFound(t *testing.T) {
	s := New()

	_, err := s.Orders().FindByNumber(context.Background(), "NONEXISTENT-000")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPlaceRollsBackOnMissingProduct(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := createProduct(t, s, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("100.00"), StockQuantity: ptr(4)})

	_, err := placeOrder(t, s, "MP-2025-000002", nil, item(p.ID, 1, "100.00"), item(999, 1, "5.00"))
	require.ErrorIs(t, err, repository.ErrProductNotFound)

	stored, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.StockQuantity)

	_, err = s.Orders().FindByNumber(ctx, "MP-2025-000002")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
	assert.Empty(t, s.orderItems)
}

func TestPlaceRejectsDuplicateOrderNumber(t *testing.T) {
	s := New()
	p := createProduct(t, s, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("100.00"), StockQuantity: ptr(4)})

	_, err := placeOrder(t, s, "MP-2025-000003", nil, item(p.ID, 1, "100.00"))
	require.NoError(t, err)

	_, err = placeOrder(t, s, "MP-2025-000003", nil, item(p.ID, 1, "100.00"))
	assert.ErrorIs(t, err, repository.ErrDuplicateOrderNumber)

	stored, err := s.Products().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.StockQuantity)
}

func TestPlaceBackorderAllowsNegativeStock(t *testing.T) {
	s := New()
	p := createProduct(t, s, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("100.00"), StockQuantity: ptr(1)})

	_, err := placeOrder(t, s, "MP-2025-000004", nil, item(p.ID, 3, "100.00"))
	require.NoError(t, err)

	stored, err := s.Products().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, -2, stored.StockQuantity)
}

func TestPlaceStrictRejectsInsufficientStock(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := createProduct(t, s, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("100.00"), StockQuantity: ptr(3)})

	// two lines for the same product add up past the stock
	order := &domain.Order{OrderNumber: "MP-2025-000005", Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusPending}
	err := s.Orders().Place(ctx, order, []*domain.OrderItem{item(p.ID, 2, "100.00"), item(p.ID, 2, "100.00")}, repository.StockPolicyStrict)
	require.ErrorIs(t, err, repository.ErrInsufficientStock)

	stored, err := s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.StockQuantity)

	order.OrderNumber = "MP-2025-000006"
	err = s.Orders().Place(ctx, order, []*domain.OrderItem{item(p.ID, 3, "100.00")}, repository.StockPolicyStrict)
	require.NoError(t, err)

	stored, err = s.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.StockQuantity)
}

func TestConcurrentPlacementsDecrementExactly(t *testing.T) {
	s := New()
	p := createProduct(t, s, domain.ProductInput{Name: "Silla", Price: domain.MustMoney("10.00"), StockQuantity: ptr(50)})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := &domain.Order{
				OrderNumber:   fmt.Sprintf("MP-2025-%06d", i),
				Status:        domain.OrderStatusPending,
				PaymentStatus: domain.PaymentStatusPending,
			}
			assert.NoError(t, s.Orders().Place(context.Background(), order, []*domain.OrderItem{item(p.ID, 1, "10.00")}, repository.StockPolicyStrict))
		}(i)
	}
	wg.Wait()

	stored, err := s.Products().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.StockQuantity)

	err = s.Orders().Place(context.Background(),
		&domain.Order{OrderNumber: "MP-2025-LAST", Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusPending},
		[]*domain.OrderItem{item(p.ID, 1, "10.00")}, repository.StockPolicyStrict)
	assert.True(t, errors.Is(err, repository.ErrInsufficientStock))
}

func TestListProductsNewestFirst(t *testing.T) {
	clock := newTickingClock()
	s := New(WithClock(clock.Now))
	ctx := context.Background()

	a := createProduct(t, s, domain.ProductInput{Name: "A", Price: domain.MustMoney("1.00")})
	b := createProduct(t, s, domain.ProductInput{Name: "B", Price: domain.MustMoney("1.00")})
	c := createProduct(t, s, domain.ProductInput{Name: "C", Price: domain.MustMoney("1.00")})

	products, err := s.Products().List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, []int64{c.ID, b.ID, a.ID}, []int64{products[0].ID, products[1].ID, products[2].ID})

	limited, err := s.Products().List(ctx, repository.ProductFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{c.ID, b.ID}, []int64{limited[0].ID, limited[1].ID})
}

func TestListProductsTiesBreakOnInsertionOrder(t *testing.T) {
	s := New(WithClock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }))

	first := createProduct(t, s, domain.ProductInput{Name: "first", Price: domain.MustMoney("1.00")})
	second := createProduct(t, s, domain.ProductInput{Name: "second", Price: domain.MustMoney("1.00")})
	third := createProduct(t, s, domain.ProductInput{Name: "third", Price: domain.MustMoney("1.00")})

	products, err := s.Products().List(context.Background(), repository.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, []int64{first.ID, second.ID, third.ID},
		[]int64{products[0].ID, products[1].ID, products[2].ID})

	limited, err := s.Products().List(context.Background(), repository.ProductFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)
}

func TestListByUserTiesListNewestIDFirst(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return at }))
	ctx := context.Background()

	user := "auth0|ana"
	var ids []int64
	for i := 1; i <= 2; i++ {
		order := &domain.Order{
			OrderNumber: fmt.Sprintf("MP-2025-%06d", i), UserID: &user,
			Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusPending,
			CreatedAt: at, UpdatedAt: at,
		}
		require.NoError(t, s.Orders().Place(ctx, order, nil, repository.StockPolicyBackorder))
		ids = append(ids, order.ID)
	}

	orders, err := s.Orders().ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, ids[1], orders[0].ID)
	assert.Equal(t, ids[0], orders[1].ID)
}

func TestListProductsFilters(t *testing.T) {
	s := New(WithClock(newTickingClock().Now))
	ctx := context.Background()

	kitchen := createCategory(t, s, "Utensilios de cocina", "kitchen-tools")
	closet := createCategory(t, s, "Closet", "closet")

	tabla := createProduct(t, s, domain.ProductInput{
		Name: "Tabla para picar", Description: "Parota maciza", Price: domain.MustMoney("350.00"),
		CategoryID: &kitchen.ID, Featured: ptr(true),
	})
	createProduct(t, s, domain.ProductInput{
		Name: "Cajonera", Description: "Para closet", Price: domain.MustMoney("2200.00"),
		CategoryID: &closet.ID,
	})
	createProduct(t, s, domain.ProductInput{
		Name: "Tabla agotada", Price: domain.MustMoney("300.00"),
		CategoryID: &kitchen.ID, InStock: ptr(false),
	})

	byCategory, err := s.Products().List(ctx, repository.ProductFilter{CategoryID: &kitchen.ID})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, tabla.ID, byCategory[0].ID)
	require.NotNil(t, byCategory[0].Category)
	assert.Equal(t, "kitchen-tools", byCategory[0].Category.Slug)

	bySearch, err := s.Products().List(ctx, repository.ProductFilter{Search: "PAROTA"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, tabla.ID, bySearch[0].ID)

	bySearch, err = s.Products().List(ctx, repository.ProductFilter{Search: "tabla"})
	require.NoError(t, err)
	assert.Len(t, bySearch, 1, "out-of-stock products are never listed")

	none, err := s.Products().List(ctx, repository.ProductFilter{Search: "sofá"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestProductWithoutCategoryHasNilCategory(t *testing.T) {
	s := New()
	p := createProduct(t, s, domain.ProductInput{Name: "Suelto", Price: domain.MustMoney("1.00"), CategoryID: ptr(int64(42))})

	stored, err := s.Products().FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Category)

	_, err = s.Products().FindByID(context.Background(), p.ID+1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestOrderItemWithDanglingProductHasNilProduct(t *testing.T) {
	s := New()
	p := createProduct(t, s, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("1.00")})
	order, err := placeOrder(t, s, "MP-2025-000007", nil, item(p.ID, 1, "1.00"))
	require.NoError(t, err)

	s.mu.Lock()
	delete(s.products, p.ID)
	s.mu.Unlock()

	full, err := s.Orders().FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, full.Items, 1)
	assert.Nil(t, full.Items[0].Product)
}

func TestUpdateStatusDeliveredTimestamp(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := createProduct(t, s, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("1.00")})
	order, err := placeOrder(t, s, "MP-2025-000008", nil, item(p.ID, 1, "1.00"))
	require.NoError(t, err)

	shipped, err := s.Orders().UpdateStatus(ctx, order.ID, repository.OrderStatusUpdate{
		Status:         domain.OrderStatusShipped,
		TrackingNumber: ptr("TRK-1"),
		Carrier:        ptr("Estafeta"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, shipped.Status)
	assert.Nil(t, shipped.DeliveredAt)
	assert.Equal(t, "TRK-1", *shipped.TrackingNumber)

	deliveredAt := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	delivered, err := s.Orders().UpdateStatus(ctx, order.ID, repository.OrderStatusUpdate{
		Status:      domain.OrderStatusDelivered,
		DeliveredAt: &deliveredAt,
	})
	require.NoError(t, err)
	require.NotNil(t, delivered.DeliveredAt)
	assert.True(t, deliveredAt.Equal(*delivered.DeliveredAt))
	assert.Equal(t, "TRK-1", *delivered.TrackingNumber, "tracking is kept when not supplied")
	assert.Equal(t, "Estafeta", *delivered.Carrier)

	_, err = s.Orders().UpdateStatus(ctx, order.ID+100, repository.OrderStatusUpdate{Status: domain.OrderStatusShipped})
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestUpdateStatusAllowVeto(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := createProduct(t, s, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("1.00")})
	order, err := placeOrder(t, s, "MP-2025-000009", nil, item(p.ID, 1, "1.00"))
	require.NoError(t, err)

	veto := errors.New("no")
	var seen domain.OrderStatus
	_, err = s.Orders().UpdateStatus(ctx, order.ID, repository.OrderStatusUpdate{
		Status: domain.OrderStatusDelivered,
		Allow: func(current domain.OrderStatus) error {
			seen = current
			return veto
		},
	})
	assert.ErrorIs(t, err, veto)
	assert.Equal(t, domain.OrderStatusPending, seen)

	full, err := s.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, full.Status)
}

func TestUpdatePaymentStatusIsIndependent(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := createProduct(t, s, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("1.00")})
	order, err := placeOrder(t, s, "MP-2025-000010", nil, item(p.ID, 1, "1.00"))
	require.NoError(t, err)

	paid, err := s.Orders().UpdatePaymentStatus(ctx, order.ID, domain.PaymentStatusPaid, ptr("pi_123"), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, domain.OrderStatusPending, paid.Status)
	assert.Equal(t, "pi_123", *paid.PaymentReferenceID)

	_, err = s.Orders().UpdatePaymentStatus(ctx, 999, domain.PaymentStatusPaid, nil, time.Time{})
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestListByUserNewestFirst(t *testing.T) {
	s := New(WithClock(newTickingClock().Now))
	ctx := context.Background()
	p := createProduct(t, s, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("1.00")})

	first, err := placeOrder(t, s, "MP-2025-000011", ptr("user-1"), item(p.ID, 1, "1.00"))
	require.NoError(t, err)
	_, err = placeOrder(t, s, "MP-2025-000012", ptr("user-2"), item(p.ID, 1, "1.00"))
	require.NoError(t, err)
	second, err := placeOrder(t, s, "MP-2025-000013", ptr("user-1"), item(p.ID, 2, "1.00"))
	require.NoError(t, err)

	orders, err := s.Orders().ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
	assert.Len(t, orders[0].Items, 1)

	none, err := s.Orders().ListByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestContactRequestsNewestFirst(t *testing.T) {
	s := New(WithClock(newTickingClock().Now))
	ctx := context.Background()

	older := domain.NewContactRequest("Ana", "ana@example.com", nil, "Cotización", "Hola", time.Time{})
	require.NoError(t, s.ContactRequests().Create(ctx, older))
	newer := domain.NewContactRequest("Luis", "luis@example.com", ptr(""), "Envío", "Hola", time.Time{})
	require.NoError(t, s.ContactRequests().Create(ctx, newer))

	requests, err := s.ContactRequests().List(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, newer.ID, requests[0].ID)
	assert.Nil(t, requests[0].Phone)
	assert.Equal(t, domain.ContactStatusNew, requests[1].Status)

	updated, err := s.ContactRequests().UpdateStatus(ctx, older.ID, domain.ContactStatusReplied, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.ContactStatusReplied, updated.Status)

	_, err = s.ContactRequests().UpdateStatus(ctx, 999, domain.ContactStatusClosed, time.Time{})
	assert.ErrorIs(t, err, repository.ErrContactRequestNotFound)
}

func TestUserUpsertKeepsPaymentProfile(t *testing.T) {
	s := New()
	ctx := context.Background()

	user := domain.NewUser("auth0|1", ptr("ana@example.com"), ptr("Ana"), nil, nil, "", time.Time{})
	created, err := s.Users().Upsert(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, created.Role)

	_, err = s.Users().UpdatePaymentInfo(ctx, "auth0|1", "cus_1", ptr("sub_1"))
	require.NoError(t, err)

	refreshed := domain.NewUser("auth0|1", ptr("ana@new.example.com"), ptr("Ana"), nil, nil, "", time.Time{})
	stored, err := s.Users().Upsert(ctx, refreshed)
	require.NoError(t, err)
	assert.Equal(t, "ana@new.example.com", *stored.Email)
	assert.Equal(t, "cus_1", *stored.PaymentCustomerID)
	assert.Equal(t, "sub_1", *stored.PaymentSubscriptionID)
	assert.True(t, created.CreatedAt.Equal(stored.CreatedAt))

	_, err = s.Users().FindByID(ctx, "auth0|2")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	_, err = s.Users().UpdatePaymentInfo(ctx, "auth0|2", "cus_2", nil)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

// Feature: storefront, Property 1: Product reads return the last write with its category resolved
func TestProperty_ProductReadsReturnLastWrite(t *testing.T) {
	s := New()
	category := createCategory(t, s, "Closet", "closet")

	properties := gopter.NewProperties(nil)

	properties.Property("getProduct returns the created product", prop.ForAll(
		func(name string, amount int64, stock int, withCategory bool, featured bool) bool {
			in := domain.ProductInput{
				Name:          name,
				Description:   "Madera de pino",
				Price:         cents(amount),
				StockQuantity: &stock,
				Featured:      &featured,
				Tags:          []string{"cnc"},
			}
			if withCategory {
				in.CategoryID = &category.ID
			}
			p := domain.NewProduct(in, time.Time{})
			if err := s.Products().Create(context.Background(), p); err != nil {
				return false
			}

			stored, err := s.Products().FindByID(context.Background(), p.ID)
			if err != nil {
				return false
			}
			if stored.Name != name || !stored.Price.Equals(p.Price) || stored.StockQuantity != stock || stored.Featured != featured {
				return false
			}
			if withCategory {
				return stored.Category != nil && stored.Category.ID == category.ID
			}
			return stored.Category == nil
		},
		gen.AlphaString(),
		gen.Int64Range(0, 10_000_000),
		gen.IntRange(-5, 500),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: storefront, Property 2: Order items snapshot the submitted price and decrement stock
func TestProperty_OrderSnapshotsPriceAndDecrementsStock(t *testing.T) {
	s := New()
	live := createProduct(t, s, domain.ProductInput{Name: "Mesa", Price: domain.MustMoney("999.99"), StockQuantity: ptr(100)})
	seq := 0

	properties := gopter.NewProperties(nil)

	properties.Property("items keep the submitted price and stock drops by the quantity", prop.ForAll(
		func(quantities []int, amount int64) bool {
			ctx := context.Background()
			before, err := s.Products().FindByID(ctx, live.ID)
			if err != nil {
				return false
			}

			price := cents(amount)
			items := make([]*domain.OrderItem, 0, len(quantities))
			total := 0
			for _, q := range quantities {
				items = append(items, &domain.OrderItem{ProductID: &live.ID, Quantity: q, Price: price})
				total += q
			}

			seq++
			order := &domain.Order{
				OrderNumber:   fmt.Sprintf("MP-2025-P%05d", seq),
				Status:        domain.OrderStatusPending,
				PaymentStatus: domain.PaymentStatusPending,
			}
			if err := s.Orders().Place(ctx, order, items, repository.StockPolicyBackorder); err != nil {
				return false
			}

			full, err := s.Orders().FindByNumber(ctx, order.OrderNumber)
			if err != nil || len(full.Items) != len(quantities) {
				return false
			}
			for _, it := range full.Items {
				if !it.Price.Equals(price) {
					return false
				}
			}

			again, err := s.Orders().FindByNumber(ctx, order.OrderNumber)
			if err != nil || again.ID != full.ID || len(again.Items) != len(full.Items) {
				return false
			}

			after, err := s.Products().FindByID(ctx, live.ID)
			if err != nil {
				return false
			}
			return after.StockQuantity == before.StockQuantity-total && after.Price.Equals(live.Price)
		},
		gen.SliceOfN(3, gen.IntRange(1, 5)),
		gen.Int64Range(0, 500_000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Feature: storefront, Property 3: Listings honour the featured and stock filters
func TestProperty_ListingsHonourFilters(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("featured listings only hold featured, in-stock products", prop.ForAll(
		func(flags []bool) bool {
			s := New(WithClock(newTickingClock().Now))
			for i, featured := range flags {
				inStock := i%3 != 0
				p := domain.NewProduct(domain.ProductInput{
					Name:     "P",
					Price:    domain.MustMoney("1.00"),
					Featured: ptr(featured),
					InStock:  &inStock,
				}, time.Time{})
				if err := s.Products().Create(context.Background(), p); err != nil {
					return false
				}
			}

			all, err := s.Products().List(context.Background(), repository.ProductFilter{})
			if err != nil {
				return false
			}
			for i, p := range all {
				if !p.InStock {
					return false
				}
				if i > 0 && p.CreatedAt.After(all[i-1].CreatedAt) {
					return false
				}
			}

			featured, err := s.Products().List(context.Background(), repository.ProductFilter{Featured: ptr(true)})
			if err != nil {
				return false
			}
			for _, p := range featured {
				if !p.Featured || !p.InStock {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
