package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"

	"go.uber.org/zap"
)

var ErrUnknownCategory = errors.New("category does not exist")

// CatalogService defines the interface for catalog business logic
type CatalogService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	CreateCategory(ctx context.Context, name, slug string, description, imageURL *string) (*domain.Category, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.ProductWithCategory, error)
	GetProduct(ctx context.Context, id int64) (*domain.ProductWithCategory, error)
	CreateProduct(ctx context.Context, input domain.ProductInput) (*domain.ProductWithCategory, error)
}

type catalogService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	now        func() time.Time
	logger     *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	categories repository.CategoryRepository,
	products repository.ProductRepository,
	logger *zap.Logger,
) CatalogService {
	return &catalogService{
		categories: categories,
		products:   products,
		now:        time.Now,
		logger:     logger,
	}
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *catalogService) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	category, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

// CreateCategory rejects a slug that is already taken
func (s *catalogService) CreateCategory(ctx context.Context, name, slug string, description, imageURL *string) (*domain.Category, error) {
	existing, err := s.categories.FindBySlug(ctx, slug)
	if err != nil && !errors.Is(err, repository.ErrCategoryNotFound) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrCategoryAlreadyExists
	}

	category := domain.NewCategory(name, slug, description, imageURL)
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("Category created",
		zap.Int64("category_id", category.ID),
		zap.String("slug", category.Slug),
	)
	return category, nil
}

// ListProducts never returns products flagged out of stock
func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.ProductWithCategory, error) {
	if filter.Limit < 0 {
		filter.Limit = 0
	}
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*domain.ProductWithCategory, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// CreateProduct applies the catalog defaults and checks the category reference
func (s *catalogService) CreateProduct(ctx context.Context, input domain.ProductInput) (*domain.ProductWithCategory, error) {
	if input.Price.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrice, input.Price)
	}
	if input.OriginalPrice != nil && input.OriginalPrice.IsNegative() {
		return nil, fmt.Errorf("%w: original price %s", ErrInvalidPrice, input.OriginalPrice)
	}

	product := domain.NewProduct(input, s.now())

	if product.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *product.CategoryID); err != nil {
			if errors.Is(err, repository.ErrCategoryNotFound) {
				return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, *product.CategoryID)
			}
			return nil, fmt.Errorf("failed to check category: %w", err)
		}
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("name", product.Name),
	)

	created, err := s.products.FindByID(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created product: %w", err)
	}
	return created, nil
}
