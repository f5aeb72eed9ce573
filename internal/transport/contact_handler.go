package transport

import (
	"net/http"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/middleware"
	"madera-precisa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateContactRequest represents the public contact form payload
type CreateContactRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   string  `json:"email" validate:"required,email,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=40"`
	Subject string  `json:"subject" validate:"required,max=255"`
	Message string  `json:"message" validate:"required,max=5000"`
}

// UpdateContactStatusRequest represents an admin contact request status change
type UpdateContactStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new read replied closed"`
}

// ContactHandler handles HTTP requests for the contact form
type ContactHandler struct {
	contactService service.ContactService
	logger         *zap.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contactService service.ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		logger:         logger,
	}
}

// RegisterRoutes registers all contact routes
func (h *ContactHandler) RegisterRoutes(r chi.Router, mw RouteMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RateLimit)
		r.Post("/api/contact", h.CreateContactRequest)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.Auth, mw.Admin)
		r.Get("/api/admin/contact-requests", h.ListContactRequests)
		r.Patch("/api/admin/contact-requests/{id}/status", h.UpdateStatus)
	})
}

// CreateContactRequest stores a message from the public contact form
func (h *ContactHandler) CreateContactRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	request, err := h.contactService.CreateContactRequest(r.Context(), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "create contact request")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, request)
}

func (h *ContactHandler) ListContactRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.contactService.ListContactRequests(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "list contact requests")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, requests)
}

func (h *ContactHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid contact request ID")
		return
	}

	var req UpdateContactStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	request, err := h.contactService.UpdateContactRequestStatus(r.Context(), id, domain.ContactStatus(req.Status))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "update contact request status")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, request)
}
