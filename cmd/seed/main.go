package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/config"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
)

type seedCategory struct {
	name        string
	description string
}

type seedProduct struct {
	name        string
	category    string
	price       string
	stock       int
	description string
}

var categories = []seedCategory{
	{"Electronics", "Electronic devices and gadgets"},
	{"Clothing", "Fashion and apparel"},
	{"Books", "Books and literature"},
	{"Home & Garden", "Home improvement and garden supplies"},
	{"Sports", "Sports equipment and accessories"},
}

var products = []seedProduct{
	{"Laptop Pro", "Electronics", "999.99", 10, "High-performance laptop for professionals"},
	{"Wireless Headphones", "Electronics", "199.99", 25, "Premium noise-cancelling headphones"},
	{"Smart Watch", "Electronics", "299.99", 15, "Feature-rich smartwatch with health tracking"},
	{"T-Shirt", "Clothing", "29.99", 50, "Comfortable cotton t-shirt"},
	{"Jeans", "Clothing", "79.99", 30, "Classic denim jeans"},
	{"Python Programming", "Books", "39.99", 20, "Learn Python programming from scratch"},
	{"Garden Tools Set", "Home & Garden", "49.99", 12, "Complete set of essential garden tools"},
	{"Yoga Mat", "Sports", "29.99", 35, "Non-slip exercise yoga mat"},
}

func main() {
	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	db, err := store.NewStore(cfg.Database.URL, store.DefaultPoolConfig())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	admin := service.NewAdminService(db)

	existing, err := admin.ListCategories(ctx)
	if err != nil {
		logger.Fatal("Failed to list categories", zap.Error(err))
	}
	categoryIDs := make(map[string]int64, len(existing))
	for _, c := range existing {
		categoryIDs[c.Slug] = c.ID
	}

	for _, c := range categories {
		s := slug.Make(c.name)
		if _, ok := categoryIDs[s]; ok {
			continue
		}
		created, err := admin.CreateCategory(ctx, &service.CategoryRequest{Name: c.name, Slug: s, Description: c.description})
		if err != nil {
			logger.Fatal("Failed to create category", zap.String("name", c.name), zap.Error(err))
		}
		categoryIDs[s] = created.ID
		logger.Info("Created category", zap.String("name", c.name))
	}

	available := true
	for _, p := range products {
		price := decimal.RequireFromString(p.price)
		_, err := admin.CreateProduct(ctx, &service.ProductRequest{
			Name:        p.name,
			CategoryID:  categoryIDs[slug.Make(p.category)],
			Description: p.description,
			Price:       &price,
			Stock:       p.stock,
			Available:   &available,
		})

		var verr *service.ValidationError
		switch {
		case err == nil:
			logger.Info("Created product", zap.String("name", p.name))
		case errors.As(err, &verr) && verr.Field == "slug":
			logger.Debug("Product already seeded", zap.String("name", p.name))
		default:
			logger.Fatal("Failed to create product", zap.String("name", p.name), zap.Error(err))
		}
	}

	logger.Info("Database seeded successfully")
}
