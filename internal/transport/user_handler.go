package transport

import (
	"net/http"

	"madera-precisa/internal/middleware"
	"madera-precisa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UpdatePaymentProfileRequest represents the payment provider identifiers of a user
type UpdatePaymentProfileRequest struct {
	CustomerID     string  `json:"customerId" validate:"required,max=255"`
	SubscriptionID *string `json:"subscriptionId" validate:"omitempty,max=255"`
}

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers all user routes
func (h *UserHandler) RegisterRoutes(r chi.Router, mw RouteMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.Auth)
		r.Get("/api/auth/user", h.GetCurrentUser)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Auth, mw.Admin)
		r.Put("/api/admin/users/{id}/payment-profile", h.UpdatePaymentProfile)
	})
}

// GetCurrentUser handles getting the authenticated user's profile
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "get user")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}

// UpdatePaymentProfile stores the payment provider customer and subscription ids
func (h *UserHandler) UpdatePaymentProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req UpdatePaymentProfileRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	user, err := h.userService.UpdatePaymentInfo(r.Context(), userID, req.CustomerID, req.SubscriptionID)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "update payment profile")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, user)
}
