package service

import (
	"context"
	"fmt"

	"madera-precisa/internal/domain"

	"go.uber.org/zap"
)

type seedCategory struct {
	name        string
	slug        string
	description string
	imageURL    string
}

var seedCategories = []seedCategory{
	{"Vestidor", "dressing", "Organización y elegancia para tu ropa", "/attached_assets/Vestidor_pagina_1768180108306.png"},
	{"Utensilios de cocina", "kitchen-tools", "Todo lo necesario para tu cocina", "https://images.unsplash.com/photo-1505691938895-1758d7eaa511"},
	{"Closet", "closet", "Soluciones de almacenamiento a medida", "https://images.unsplash.com/photo-1595428774223-ef52624120d2"},
}

type seedProduct struct {
	name         string
	description  string
	price        string
	categorySlug string
	imageURL     string
	stock        int
}

var seedProducts = []seedProduct{
	{"Mesa de Centro CNC", "Mesa elegante cortada con precisión milimétrica", "2500.00", "dressing", "https://images.unsplash.com/photo-1533090161767-e6ffed986c88", 10},
	{"Estante Modular", "Sistema de estantería encajable sin tornillos", "1800.00", "dressing", "https://images.unsplash.com/photo-1594620302200-9a762244a156", 5},
}

// SeedCatalog loads the starter categories and featured products.
// It does nothing when any category exists and reports whether it seeded.
func SeedCatalog(ctx context.Context, catalog CatalogService, logger *zap.Logger) (bool, error) {
	existing, err := catalog.ListCategories(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check catalog: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("Catalog already populated, skipping seed", zap.Int("categories", len(existing)))
		return false, nil
	}

	categoryIDs := make(map[string]int64, len(seedCategories))
	for _, c := range seedCategories {
		description, imageURL := c.description, c.imageURL
		category, err := catalog.CreateCategory(ctx, c.name, c.slug, &description, &imageURL)
		if err != nil {
			return false, fmt.Errorf("failed to seed category %s: %w", c.slug, err)
		}
		categoryIDs[c.slug] = category.ID
	}

	inStock, featured := true, true
	for _, p := range seedProducts {
		categoryID := categoryIDs[p.categorySlug]
		stock := p.stock
		_, err := catalog.CreateProduct(ctx, domain.ProductInput{
			Name:          p.name,
			Description:   p.description,
			Price:         domain.MustMoney(p.price),
			CategoryID:    &categoryID,
			ImageURL:      p.imageURL,
			InStock:       &inStock,
			StockQuantity: &stock,
			Featured:      &featured,
		})
		if err != nil {
			return false, fmt.Errorf("failed to seed product %s: %w", p.name, err)
		}
	}

	logger.Info("Catalog seeded",
		zap.Int("categories", len(seedCategories)),
		zap.Int("products", len(seedProducts)),
	)
	return true, nil
}
