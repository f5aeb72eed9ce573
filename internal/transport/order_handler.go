package transport

import (
	"net/http"
	"strings"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/middleware"
	"madera-precisa/internal/repository"
	"madera-precisa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderItemRequest is one cart line of a checkout
type OrderItemRequest struct {
	ProductID int64         `json:"productId" validate:"required,gt=0"`
	Quantity  int           `json:"quantity" validate:"required,gte=1,lte=999"`
	Price     *domain.Money `json:"price" validate:"required"`
}

// CreateOrderRequest represents the checkout payload
type CreateOrderRequest struct {
	ShippingAddress    domain.Address     `json:"shippingAddress" validate:"required"`
	BillingAddress     *domain.Address    `json:"billingAddress" validate:"omitempty"`
	Items              []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentReferenceID *string            `json:"paymentReferenceId" validate:"omitempty,max=255"`
}

// UpdateOrderStatusRequest represents an admin status change
type UpdateOrderStatusRequest struct {
	Status         string  `json:"status" validate:"required,oneof=pending confirmed preparing shipped delivered cancelled"`
	TrackingNumber *string `json:"trackingNumber" validate:"omitempty,max=100"`
	Carrier        *string `json:"carrier" validate:"omitempty,max=100"`
}

// UpdatePaymentStatusRequest represents an admin payment status change
type UpdatePaymentStatusRequest struct {
	PaymentStatus      string  `json:"paymentStatus" validate:"required,oneof=pending paid failed refunded"`
	PaymentReferenceID *string `json:"paymentReferenceId" validate:"omitempty,max=255"`
}

// OrderTracker streams live status changes of one order
type OrderTracker interface {
	ServeOrder(w http.ResponseWriter, r *http.Request, orderNumber string)
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	tracker      OrderTracker
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler. A nil tracker disables live tracking.
func NewOrderHandler(orderService service.OrderService, tracker OrderTracker, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		tracker:      tracker,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, mw RouteMiddleware) {
	// Public tracking
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit)
		r.Get("/api/orders/track/{orderNumber}", h.TrackOrder)
		if h.tracker != nil {
			r.Get("/api/orders/track/{orderNumber}/live", h.TrackOrderLive)
		}
	})

	// Customer routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Auth)
		r.Get("/api/orders", h.ListMyOrders)
		r.Post("/api/orders", h.CreateOrder)
		r.Get("/api/orders/{id}", h.GetMyOrder)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Auth, mw.Admin)
		r.Get("/api/admin/orders/{id}", h.GetOrder)
		r.Patch("/api/admin/orders/{id}/status", h.UpdateStatus)
		r.Patch("/api/admin/orders/{id}/payment-status", h.UpdatePaymentStatus)
	})
}

// CreateOrder handles checkout for the authenticated user
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     *item.Price,
		})
	}

	order, err := h.orderService.CreateOrder(r.Context(), service.CreateOrderInput{
		UserID:             &userID,
		ShippingAddress:    req.ShippingAddress,
		BillingAddress:     req.BillingAddress,
		Items:              items,
		PaymentReferenceID: req.PaymentReferenceID,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "create order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

// ListMyOrders returns the authenticated user's orders, newest first
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	orders, err := h.orderService.ListUserOrders(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "list orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

// GetMyOrder returns one order of the authenticated user. Orders of other
// users are reported as not found; admins can read any order.
func (h *OrderHandler) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "get order")
		return
	}

	role, _ := middleware.GetUserRole(r.Context())
	if role != domain.RoleAdmin && (order.UserID == nil || *order.UserID != userID) {
		middleware.RespondWithError(w, http.StatusNotFound, repository.ErrOrderNotFound.Error())
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// GetOrder returns any order by id
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "get order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// TrackOrder looks an order up by its public order number
func (h *OrderHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

	order, err := h.orderService.GetOrderByNumber(r.Context(), orderNumber)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "track order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// TrackOrderLive upgrades to a websocket streaming status changes of an existing order
func (h *OrderHandler) TrackOrderLive(w http.ResponseWriter, r *http.Request) {
	orderNumber := strings.TrimSpace(chi.URLParam(r, "orderNumber"))

	if _, err := h.orderService.GetOrderByNumber(r.Context(), orderNumber); err != nil {
		respondWithServiceError(w, h.logger, err, "track order")
		return
	}
	h.tracker.ServeOrder(w, r, orderNumber)
}

// UpdateStatus handles an admin order status change
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	order, err := h.orderService.UpdateOrderStatus(r.Context(), id, service.UpdateStatusInput{
		Status:         domain.OrderStatus(req.Status),
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "update order status")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

// UpdatePaymentStatus handles an admin payment status change
func (h *OrderHandler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req UpdatePaymentStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	order, err := h.orderService.UpdateOrderPaymentStatus(r.Context(), id, domain.PaymentStatus(req.PaymentStatus), req.PaymentReferenceID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "update payment status")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}
