package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Category represents a product category
type Category struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Slug        string  `json:"slug" db:"slug"`
	Description *string `json:"description" db:"description"`
	ImageURL    *string `json:"imageUrl" db:"image_url"`
}

// Product represents a product in the catalog
type Product struct {
	ID            int64      `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	Description   string     `json:"description" db:"description"`
	Price         Money      `json:"price" db:"price"`
	OriginalPrice *Money     `json:"originalPrice" db:"original_price"`
	CategoryID    *int64     `json:"categoryId" db:"category_id"`
	ImageURL      string     `json:"imageUrl" db:"image_url"`
	Images        StringList `json:"images" db:"images"`
	InStock       bool       `json:"inStock" db:"in_stock"`
	StockQuantity int        `json:"stockQuantity" db:"stock_quantity"`
	Featured      bool       `json:"featured" db:"featured"`
	Tags          StringList `json:"tags" db:"tags"`
	Dimensions    *string    `json:"dimensions" db:"dimensions"`
	Material      *string    `json:"material" db:"material"`
	Color         *string    `json:"color" db:"color"`
	Weight        *string    `json:"weight" db:"weight"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// ProductWithCategory is a product joined with its category.
// Category is nil when the product has no category or it no longer exists.
type ProductWithCategory struct {
	Product
	Category *Category `json:"category"`
}

// NewCategory normalises a category before it is stored
func NewCategory(name, slug string, description, imageURL *string) *Category {
	return &Category{
		Name:        name,
		Slug:        slug,
		Description: nonEmpty(description),
		ImageURL:    nonEmpty(imageURL),
	}
}

// ProductInput carries caller-supplied product fields.
// Nil pointers take the catalog defaults in NewProduct.
type ProductInput struct {
	Name          string
	Description   string
	Price         Money
	OriginalPrice *Money
	CategoryID    *int64
	ImageURL      string
	Images        []string
	InStock       *bool
	StockQuantity *int
	Featured      *bool
	Tags          []string
	Dimensions    *string
	Material      *string
	Color         *string
	Weight        *string
}

// NewProduct fills defaults: in stock, zero quantity, not featured, timestamps set to now
func NewProduct(in ProductInput, now time.Time) *Product {
	p := &Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		CategoryID:    in.CategoryID,
		ImageURL:      in.ImageURL,
		Images:        in.Images,
		InStock:       true,
		StockQuantity: 0,
		Featured:      false,
		Tags:          in.Tags,
		Dimensions:    nonEmpty(in.Dimensions),
		Material:      nonEmpty(in.Material),
		Color:         nonEmpty(in.Color),
		Weight:        nonEmpty(in.Weight),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.InStock != nil {
		p.InStock = *in.InStock
	}
	if in.StockQuantity != nil {
		p.StockQuantity = *in.StockQuantity
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.CategoryID != nil && *in.CategoryID == 0 {
		p.CategoryID = nil
	}
	return p
}

// StringList is a list of strings stored as a JSONB array
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, (*[]string)(l))
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dest)
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
