package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"
)

// CatalogReader is the read side of the catalog
type CatalogReader interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	LatestAvailableProducts(ctx context.Context, limit int) ([]models.Product, error)
	ListProducts(ctx context.Context, filter store.ProductFilter) (store.OffsetPage[models.Product], error)
	GetAvailableProductBySlug(ctx context.Context, slug string) (*models.Product, error)
}

// CatalogService handles storefront browsing
type CatalogService struct {
	catalog  CatalogReader
	featured int
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalog CatalogReader, featured int) *CatalogService {
	if featured <= 0 {
		featured = 8
	}
	return &CatalogService{catalog: catalog, featured: featured, logger: util.GetLogger()}
}

// HomePage is the landing page content
type HomePage struct {
	Products   []models.Product  `json:"products"`
	Categories []models.Category `json:"categories"`
}

// Home returns the newest available products and every category
func (s *CatalogService) Home(ctx context.Context) (*HomePage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.Home")
	defer span.End()

	products, err := s.catalog.LatestAvailableProducts(ctx, s.featured)
	if err != nil {
		return nil, err
	}
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return &HomePage{Products: products, Categories: categories}, nil
}

// ProductListing is one page of available products
type ProductListing struct {
	Category   *models.Category                 `json:"category,omitempty"`
	Categories []models.Category                `json:"categories"`
	Products   store.OffsetPage[models.Product] `json:"products"`
}

// ListProducts pages through available products, optionally in one category.
// An unknown category slug is a not-found error.
func (s *CatalogService) ListProducts(ctx context.Context, categorySlug string, page store.Page) (*ProductListing, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	available := true
	filter := store.ProductFilter{Available: &available, Page: page}

	listing := &ProductListing{}
	if categorySlug != "" {
		category, err := s.catalog.GetCategoryBySlug(ctx, categorySlug)
		if err != nil {
			return nil, err
		}
		listing.Category = category
		filter.CategoryID = &category.ID
	}

	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	listing.Categories = categories

	products, err := s.catalog.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	listing.Products = products
	return listing, nil
}

// ProductDetail returns an available product by slug
func (s *CatalogService) ProductDetail(ctx context.Context, slug string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ProductDetail")
	defer span.End()

	return s.catalog.GetAvailableProductBySlug(ctx, slug)
}
