package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/store"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).([]models.Category)
	return c, args.Error(1)
}

func (m *mockCatalog) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	args := m.Called(ctx, slug)
	c, _ := args.Get(0).(*models.Category)
	return c, args.Error(1)
}

func (m *mockCatalog) LatestAvailableProducts(ctx context.Context, limit int) ([]models.Product, error) {
	args := m.Called(ctx, limit)
	p, _ := args.Get(0).([]models.Product)
	return p, args.Error(1)
}

func (m *mockCatalog) ListProducts(ctx context.Context, filter store.ProductFilter) (store.OffsetPage[models.Product], error) {
	args := m.Called(ctx, filter)
	p, _ := args.Get(0).(store.OffsetPage[models.Product])
	return p, args.Error(1)
}

func (m *mockCatalog) GetAvailableProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func TestHome_DefaultsToEightProducts(t *testing.T) {
	cat := new(mockCatalog)
	cat.On("LatestAvailableProducts", mock.Anything, 8).Return([]models.Product{{ID: 1}}, nil).Once()
	cat.On("ListCategories", mock.Anything).Return([]models.Category{{ID: 1}}, nil).Once()

	home, err := NewCatalogService(cat, 0).Home(context.Background())
	require.NoError(t, err)
	assert.Len(t, home.Products, 1)
	assert.Len(t, home.Categories, 1)
	cat.AssertExpectations(t)
}

func TestListProducts_FiltersByCategory(t *testing.T) {
	cat := new(mockCatalog)
	cat.On("GetCategoryBySlug", mock.Anything, "books").Return(&models.Category{ID: 3, Slug: "books"}, nil)
	cat.On("ListCategories", mock.Anything).Return([]models.Category{{ID: 3}}, nil)
	cat.On("ListProducts", mock.Anything, mock.MatchedBy(func(f store.ProductFilter) bool {
		return f.CategoryID != nil && *f.CategoryID == 3 && f.Available != nil && *f.Available
	})).Return(store.OffsetPage[models.Product]{Items: []models.Product{{ID: 6}}, Total: 1}, nil).Once()

	listing, err := NewCatalogService(cat, 8).ListProducts(context.Background(), "books", store.Page{})
	require.NoError(t, err)
	assert.Equal(t, "books", listing.Category.Slug)
	assert.Equal(t, int64(1), listing.Products.Total)
	cat.AssertExpectations(t)
}

func TestListProducts_UnknownCategory(t *testing.T) {
	cat := new(mockCatalog)
	cat.On("GetCategoryBySlug", mock.Anything, "nope").Return(nil, store.ErrCategoryNotFound)

	_, err := NewCatalogService(cat, 8).ListProducts(context.Background(), "nope", store.Page{})
	assert.ErrorIs(t, err, store.ErrNotFound)
	cat.AssertNotCalled(t, "ListProducts", mock.Anything, mock.Anything)
}
