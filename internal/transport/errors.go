package transport

import (
	"errors"
	"net/http"
	"strconv"

	"madera-precisa/internal/middleware"
	"madera-precisa/internal/repository"
	"madera-precisa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RouteMiddleware bundles the middleware handlers attach to their route groups
type RouteMiddleware struct {
	Auth      func(http.Handler) http.Handler
	Admin     func(http.Handler) http.Handler
	RateLimit func(http.Handler) http.Handler
}

var notFoundErrors = []error{
	repository.ErrOrderNotFound,
	repository.ErrProductNotFound,
	repository.ErrCategoryNotFound,
	repository.ErrContactRequestNotFound,
	repository.ErrUserNotFound,
}

var badRequestErrors = []error{
	service.ErrEmptyOrder,
	service.ErrInvalidQuantity,
	service.ErrInvalidPrice,
	service.ErrInvalidStatus,
	service.ErrUnknownCategory,
}

var conflictErrors = []error{
	repository.ErrCategoryAlreadyExists,
	repository.ErrInsufficientStock,
	repository.ErrDuplicateOrderNumber,
	service.ErrInvalidStatusTransition,
}

// respondWithServiceError maps service and repository errors to a status code.
// Anything unrecognised is logged and answered with a generic 500.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	if errors.Is(err, repository.ErrNotFound) {
		middleware.RespondWithError(w, http.StatusNotFound, sentinelMessage(err, notFoundErrors, "not found"))
		return
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			middleware.RespondWithError(w, http.StatusBadRequest, target.Error())
			return
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			middleware.RespondWithError(w, http.StatusConflict, target.Error())
			return
		}
	}

	logger.Error("Failed to "+action, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "failed to "+action)
}

func sentinelMessage(err error, candidates []error, fallback string) string {
	for _, target := range candidates {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return fallback
}

// respondWithDecodeError answers a body that failed to decode or validate
func respondWithDecodeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Debug("Request validation failed", zap.Error(err))
	middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
}

// idParam parses a positive integer URL parameter
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
