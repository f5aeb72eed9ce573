package memory

import (
	"context"
	"sort"
	"strings"

	"madera-precisa/internal/domain"
	"madera-precisa/internal/repository"
)

type categoryRepository struct {
	s *Store
}

// Create stores the category under the next category id.
// Slug uniqueness is left to the caller.
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	category.ID = r.s.nextID(kindCategory)
	r.s.categories[category.ID] = *category
	return nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	categories := make([]*domain.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		c := c
		categories = append(categories, &c)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].ID < categories[j].ID
	})
	return categories, nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id int64) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var found *domain.Category
	for _, c := range r.s.categories {
		if c.Slug != slug {
			continue
		}
		// lowest id wins if a caller stored a duplicate slug
		if found == nil || c.ID < found.ID {
			c := c
			found = &c
		}
	}
	if found == nil {
		return nil, repository.ErrCategoryNotFound
	}
	return found, nil
}

type productRepository struct {
	s *Store
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	product.ID = r.s.nextID(kindProduct)
	product.CreatedAt = r.s.stamp(product.CreatedAt)
	product.UpdatedAt = r.s.stamp(product.UpdatedAt)
	r.s.products[product.ID] = copyProduct(*product)
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.ProductWithCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return r.s.productWithCategory(p), nil
}

// List filters by category, featured flag and a case-insensitive search over
// name and description, drops out-of-stock products, sorts newest first and
// truncates to the limit.
func (r *productRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.ProductWithCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))

	products := []*domain.ProductWithCategory{}
	for _, p := range r.s.products {
		if !p.InStock {
			continue
		}
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.Featured != nil && p.Featured != *filter.Featured {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		products = append(products, r.s.productWithCategory(p))
	}

	// newest first; products created at the same instant keep insertion order
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if filter.Limit > 0 && len(products) > filter.Limit {
		products = products[:filter.Limit]
	}
	return products, nil
}

// DecrementStock subtracts quantity without clamping at zero
func (r *productRepository) DecrementStock(ctx context.Context, id int64, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.decrementStock(id, quantity)
}

// decrementStock must be called with the write lock held
func (s *Store) decrementStock(id int64, quantity int) error {
	p, ok := s.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.StockQuantity -= quantity
	p.UpdatedAt = s.now()
	s.products[id] = p
	return nil
}
