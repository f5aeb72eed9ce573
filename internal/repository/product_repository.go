package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"madera-precisa/internal/domain"
)

const productColumns = `
	p.id, p.name, p.description, p.price, p.original_price, p.category_id,
	p.image_url, p.images, p.in_stock, p.stock_quantity, p.featured, p.tags,
	p.dimensions, p.material, p.color, p.weight, p.created_at, p.updated_at`

const productWithCategoryQuery = `
	SELECT ` + productColumns + `,
		c.id, c.name, c.slug, c.description, c.image_url
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create inserts a new product and sets its generated id
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (
			name, description, price, original_price, category_id, image_url, images,
			in_stock, stock_quantity, featured, tags, dimensions, material, color, weight,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`

	now := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	if product.UpdatedAt.IsZero() {
		product.UpdatedAt = now
	}

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.OriginalPrice,
		product.CategoryID,
		product.ImageURL,
		product.Images,
		product.InStock,
		product.StockQuantity,
		product.Featured,
		product.Tags,
		product.Dimensions,
		product.Material,
		product.Color,
		product.Weight,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// FindByID retrieves a product joined with its category
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.ProductWithCategory, error) {
	query := productWithCategoryQuery + ` WHERE p.id = $1`

	product, err := scanProductWithCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves in-stock products matching the filter, newest first.
// Products sharing a creation time keep insertion order.
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.ProductWithCategory, error) {
	conditions := []string{"p.in_stock = TRUE"}
	args := []interface{}{}
	argIndex := 1

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("p.featured = $%d", argIndex))
		args = append(args, *filter.Featured)
		argIndex++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		// plain substring match, so % and _ in the search text are literal
		conditions = append(conditions, fmt.Sprintf(
			"(strpos(lower(p.name), lower($%d)) > 0 OR strpos(lower(p.description), lower($%d)) > 0)",
			argIndex, argIndex,
		))
		args = append(args, search)
		argIndex++
	}

	query := productWithCategoryQuery +
		" WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY p.created_at DESC, p.id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.ProductWithCategory{}
	for rows.Next() {
		product, err := scanProductWithCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// DecrementStock subtracts quantity from the stock without clamping at zero
func (r *productRepository) DecrementStock(ctx context.Context, id int64, quantity int) error {
	return decrementStock(ctx, r.db, id, quantity)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func decrementStock(ctx context.Context, db execer, id int64, quantity int) error {
	query := `
		UPDATE products
		SET stock_quantity = stock_quantity - $2, updated_at = $3
		WHERE id = $1
	`

	result, err := db.ExecContext(ctx, query, id, quantity, time.Now())
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

func productScanTargets(p *domain.Product) []interface{} {
	return []interface{}{
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.OriginalPrice,
		&p.CategoryID,
		&p.ImageURL,
		&p.Images,
		&p.InStock,
		&p.StockQuantity,
		&p.Featured,
		&p.Tags,
		&p.Dimensions,
		&p.Material,
		&p.Color,
		&p.Weight,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}

func scanProductWithCategory(row rowScanner) (*domain.ProductWithCategory, error) {
	product := &domain.ProductWithCategory{}

	var (
		categoryID          sql.NullInt64
		categoryName        sql.NullString
		categorySlug        sql.NullString
		categoryDescription *string
		categoryImageURL    *string
	)

	targets := append(productScanTargets(&product.Product),
		&categoryID,
		&categoryName,
		&categorySlug,
		&categoryDescription,
		&categoryImageURL,
	)

	if err := row.Scan(targets...); err != nil {
		return nil, err
	}

	if categoryID.Valid {
		product.Category = &domain.Category{
			ID:          categoryID.Int64,
			Name:        categoryName.String,
			Slug:        categorySlug.String,
			Description: categoryDescription,
			ImageURL:    categoryImageURL,
		}
	}

	return product, nil
}
