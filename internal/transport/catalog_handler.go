package transport

import (
	"net/http"
	"strconv"
	"strings"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/middleware"
	"madera-precisa/internal/repository"
	"madera-precisa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateCategoryRequest represents the category creation payload
type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Slug        string  `json:"slug" validate:"required,max=100,slug"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,max=500"`
}

// CreateProductRequest represents the product creation payload.
// Omitted inStock, stockQuantity and featured take the catalog defaults.
type CreateProductRequest struct {
	Name          string        `json:"name" validate:"required,max=255"`
	Description   string        `json:"description" validate:"required"`
	Price         *domain.Money `json:"price" validate:"required"`
	OriginalPrice *domain.Money `json:"originalPrice"`
	CategoryID    *int64        `json:"categoryId" validate:"omitempty,gt=0"`
	ImageURL      string        `json:"imageUrl" validate:"required,max=500"`
	Images        []string      `json:"images" validate:"omitempty,dive,max=500"`
	InStock       *bool         `json:"inStock"`
	StockQuantity *int          `json:"stockQuantity"`
	Featured      *bool         `json:"featured"`
	Tags          []string      `json:"tags" validate:"omitempty,dive,max=50"`
	Dimensions    *string       `json:"dimensions" validate:"omitempty,max=100"`
	Material      *string       `json:"material" validate:"omitempty,max=100"`
	Color         *string       `json:"color" validate:"omitempty,max=100"`
	Weight        *string       `json:"weight" validate:"omitempty,max=100"`
}

// CatalogHandler handles HTTP requests for categories and products
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router, mw RouteMiddleware) {
	// Public routes
	r.Get("/api/categories", h.ListCategories)
	r.Get("/api/categories/{slug}", h.GetCategory)
	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{id}", h.GetProduct)

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Auth, mw.Admin)
		r.Post("/api/admin/categories", h.CreateCategory)
		r.Post("/api/admin/products", h.CreateProduct)
	})
}

// ListCategories handles listing all categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err, "list categories")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// GetCategory handles getting a category by slug
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.catalogService.GetCategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondWithServiceError(w, h.logger, err, "get category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// ListProducts handles product listing with optional
// categoryId, search, featured and limit query parameters
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, errs := parseProductFilter(r)
	if len(errs) > 0 {
		middleware.RespondWithValidationErrors(w, errs)
		return
	}

	products, err := h.catalogService.ListProducts(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "list products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

func parseProductFilter(r *http.Request) (repository.ProductFilter, []middleware.ValidationError) {
	query := r.URL.Query()
	filter := repository.ProductFilter{Search: strings.TrimSpace(query.Get("search"))}
	var errs []middleware.ValidationError

	if v := query.Get("categoryId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			errs = append(errs, middleware.ValidationError{Field: "categoryId", Message: "Must be a positive integer"})
		} else {
			filter.CategoryID = &id
		}
	}

	if v := query.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, middleware.ValidationError{Field: "featured", Message: "Must be true or false"})
		} else {
			filter.Featured = &featured
		}
	}

	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			errs = append(errs, middleware.ValidationError{Field: "limit", Message: "Must be a non-negative integer"})
		} else {
			filter.Limit = limit
		}
	}

	return filter, errs
}

// GetProduct handles getting a product with its category
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "get product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// CreateCategory handles category creation
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	category, err := h.catalogService.CreateCategory(r.Context(), req.Name, req.Slug, req.Description, req.ImageURL)
	if err != nil {
		respondWithServiceError(w, h.logger, err, "create category")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// CreateProduct handles product creation
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		respondWithDecodeError(w, h.logger, err)
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), domain.ProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         *req.Price,
		OriginalPrice: req.OriginalPrice,
		CategoryID:    req.CategoryID,
		ImageURL:      req.ImageURL,
		Images:        req.Images,
		InStock:       req.InStock,
		StockQuantity: req.StockQuantity,
		Featured:      req.Featured,
		Tags:          req.Tags,
		Dimensions:    req.Dimensions,
		Material:      req.Material,
		Color:         req.Color,
		Weight:        req.Weight,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err, "create product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}
