package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"
)

const recentOrdersOnDashboard = 10

// AdminStore is the persistence AdminService needs
type AdminStore interface {
	DashboardCounts(ctx context.Context) (*store.Counts, error)
	RecentOrders(ctx context.Context, limit int) ([]models.Order, error)

	ListProducts(ctx context.Context, filter store.ProductFilter) (store.OffsetPage[models.Product], error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductStats(ctx context.Context, productID int64) (*models.ProductStats, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListOrders(ctx context.Context, filter store.OrderFilter) (store.OffsetPage[models.Order], error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error

	ListUsers(ctx context.Context, page store.Page) (store.OffsetPage[models.User], error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	ToggleUserActive(ctx context.Context, id int64) (bool, error)

	ListFAQs(ctx context.Context, filter store.FAQFilter) (store.OffsetPage[models.FAQ], error)
	GetFAQ(ctx context.Context, id int64) (*models.FAQ, error)
	CreateFAQ(ctx context.Context, faq *models.FAQ) error
	UpdateFAQ(ctx context.Context, faq *models.FAQ) error
	DeleteFAQ(ctx context.Context, id int64) error
	ToggleFAQPublished(ctx context.Context, id int64) (bool, error)
}

// AdminService backs the staff-only management surface
type AdminService struct {
	store  AdminStore
	logger *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(store AdminStore) *AdminService {
	return &AdminService{store: store, logger: util.GetLogger()}
}

// Dashboard is the admin landing page
type Dashboard struct {
	*store.Counts
	RecentOrders []models.Order `json:"recent_orders"`
}

// Dashboard returns table counts and the newest orders
func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.Dashboard")
	defer span.End()

	counts, err := s.store.DashboardCounts(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentOrders(ctx, recentOrdersOnDashboard)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Counts: counts, RecentOrders: recent}, nil
}

// ProductRequest is the product form. An empty slug is derived from the name.
type ProductRequest struct {
	Name        string           `json:"name" binding:"required,max=200"`
	Slug        string           `json:"slug" binding:"max=200"`
	CategoryID  int64            `json:"category_id" binding:"required,min=1"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Stock       int              `json:"stock" binding:"min=0"`
	Available   *bool            `json:"available"`
}

func (r *ProductRequest) apply(p *models.Product) error {
	switch {
	case r.Price == nil:
		return &ValidationError{Field: "price", Message: "is required"}
	case r.Price.IsNegative():
		return &ValidationError{Field: "price", Message: "must not be negative"}
	case !r.Price.Equal(r.Price.Round(2)):
		return &ValidationError{Field: "price", Message: "must have at most 2 decimal places"}
	}
	s, err := makeSlug(r.Slug, r.Name)
	if err != nil {
		return err
	}

	p.Name = r.Name
	p.Slug = s
	p.CategoryID = r.CategoryID
	p.Description = r.Description
	p.Price = r.Price.Round(2)
	p.Stock = r.Stock
	p.Available = r.Available == nil || *r.Available
	return nil
}

func makeSlug(explicit, name string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit == "" {
		generated := slug.Make(name)
		if generated == "" {
			return "", &ValidationError{Field: "slug", Message: "cannot be derived from name"}
		}
		return generated, nil
	}
	if !slug.IsSlug(explicit) {
		return "", &ValidationError{Field: "slug", Message: "may only contain lowercase letters, digits and hyphens"}
	}
	return explicit, nil
}

func duplicateSlug(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return &ValidationError{Field: "slug", Message: "already in use"}
	}
	return err
}

// ListProducts pages through every product, available or not
func (s *AdminService) ListProducts(ctx context.Context, filter store.ProductFilter) (store.OffsetPage[models.Product], error) {
	ctx, span := util.StartSpan(ctx, "AdminService.ListProducts")
	defer span.End()

	return s.store.ListProducts(ctx, filter)
}

// ProductDetail is a product with its sales stats
type ProductDetail struct {
	*models.Product
	Stats *models.ProductStats `json:"stats,omitempty"`
}

// GetProduct returns a product with its stats
func (s *AdminService) GetProduct(ctx context.Context, id int64) (*ProductDetail, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.GetProduct", attribute.Int64("product_id", id))
	defer span.End()

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.GetProductStats(ctx, id)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	return &ProductDetail{Product: product, Stats: stats}, nil
}

// CreateProduct validates and inserts a product
func (s *AdminService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.CreateProduct")
	defer span.End()

	product := &models.Product{}
	if err := req.apply(product); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCategoryByID(ctx, product.CategoryID); err != nil {
		return nil, err
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, duplicateSlug(err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("slug", product.Slug))
	return product, nil
}

// UpdateProduct overwrites a product
func (s *AdminService) UpdateProduct(ctx context.Context, id int64, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.UpdateProduct", attribute.Int64("product_id", id))
	defer span.End()

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(product); err != nil {
		return nil, err
	}
	if _, err := s.store.GetCategoryByID(ctx, product.CategoryID); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return nil, duplicateSlug(err)
	}
	return product, nil
}

// DeleteProduct removes a product
func (s *AdminService) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "AdminService.DeleteProduct", attribute.Int64("product_id", id))
	defer span.End()

	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

// CategoryRequest is the category form. An empty slug is derived from the name.
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Slug        string `json:"slug" binding:"max=200"`
	Description string `json:"description"`
}

// ListCategories returns every category
func (s *AdminService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

// CategoryDetail is a category with the products in it
type CategoryDetail struct {
	*models.Category
	Products store.OffsetPage[models.Product] `json:"products"`
}

// GetCategory returns a category and the first page of its products
func (s *AdminService) GetCategory(ctx context.Context, id int64, page store.Page) (*CategoryDetail, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.GetCategory", attribute.Int64("category_id", id))
	defer span.End()

	category, err := s.store.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	products, err := s.store.ListProducts(ctx, store.ProductFilter{CategoryID: &id, Page: page})
	if err != nil {
		return nil, err
	}
	return &CategoryDetail{Category: category, Products: products}, nil
}

// CreateCategory validates and inserts a category
func (s *AdminService) CreateCategory(ctx context.Context, req *CategoryRequest) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.CreateCategory")
	defer span.End()

	sl, err := makeSlug(req.Slug, req.Name)
	if err != nil {
		return nil, err
	}
	category := &models.Category{Name: req.Name, Slug: sl, Description: req.Description}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, duplicateSlug(err)
	}
	return category, nil
}

// UpdateCategory overwrites a category
func (s *AdminService) UpdateCategory(ctx context.Context, id int64, req *CategoryRequest) (*models.Category, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.UpdateCategory", attribute.Int64("category_id", id))
	defer span.End()

	category, err := s.store.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sl, err := makeSlug(req.Slug, req.Name)
	if err != nil {
		return nil, err
	}
	category.Name = req.Name
	category.Slug = sl
	category.Description = req.Description
	if err := s.store.UpdateCategory(ctx, category); err != nil {
		return nil, duplicateSlug(err)
	}
	return category, nil
}

// DeleteCategory removes a category and its products
func (s *AdminService) DeleteCategory(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "AdminService.DeleteCategory", attribute.Int64("category_id", id))
	defer span.End()

	return s.store.DeleteCategory(ctx, id)
}

// ListOrders pages through orders matching the filter
func (s *AdminService) ListOrders(ctx context.Context, filter store.OrderFilter) (store.OffsetPage[models.Order], error) {
	ctx, span := util.StartSpan(ctx, "AdminService.ListOrders")
	defer span.End()

	if filter.Status != "" && !models.ValidOrderStatus(filter.Status) {
		return store.OffsetPage[models.Order]{}, &ValidationError{Field: "status", Message: "unknown order status"}
	}
	return s.store.ListOrders(ctx, filter)
}

// GetOrder returns any order with its items
func (s *AdminService) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.GetOrder", attribute.Int64("order_id", id))
	defer span.End()

	return s.store.GetOrderByID(ctx, id)
}

// UpdateOrderStatus sets an order's status to one of the known values
func (s *AdminService) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.UpdateOrderStatus", attribute.Int64("order_id", id))
	defer span.End()

	if !models.ValidOrderStatus(status) {
		return nil, &ValidationError{Field: "status", Message: "unknown order status"}
	}
	if err := s.store.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.logger.Info("Order status updated by staff", zap.Int64("order_id", id), zap.String("status", status))
	return s.store.GetOrderByID(ctx, id)
}

// ListUsers pages through users
func (s *AdminService) ListUsers(ctx context.Context, page store.Page) (store.OffsetPage[models.User], error) {
	return s.store.ListUsers(ctx, page)
}

// UserDetail is a user with their stats and orders
type UserDetail struct {
	*models.User
	Stats  *models.UserStats `json:"stats,omitempty"`
	Orders []models.Order    `json:"orders"`
}

// GetUser returns a user with stats and order history
func (s *AdminService) GetUser(ctx context.Context, id int64) (*UserDetail, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.GetUser", attribute.Int64("user_id", id))
	defer span.End()

	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.GetUserStats(ctx, id)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	orders, err := s.store.GetOrdersByUserID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: user, Stats: stats, Orders: orders}, nil
}

// ToggleUserActive enables or disables an account. Staff cannot disable themselves.
func (s *AdminService) ToggleUserActive(ctx context.Context, actorID, id int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.ToggleUserActive", attribute.Int64("user_id", id))
	defer span.End()

	if actorID == id {
		return false, fmt.Errorf("%w: cannot change your own account status", ErrForbidden)
	}
	active, err := s.store.ToggleUserActive(ctx, id)
	if err != nil {
		return false, err
	}
	s.logger.Info("User status toggled", zap.Int64("user_id", id), zap.Bool("active", active))
	return active, nil
}

// FAQRequest is the FAQ form
type FAQRequest struct {
	CategoryID  int64  `json:"category_id" binding:"required,min=1"`
	Question    string `json:"question" binding:"required,max=255"`
	Answer      string `json:"answer" binding:"required"`
	Language    string `json:"language" binding:"omitempty,oneof=en es fr"`
	IsPublished *bool  `json:"is_published"`
}

func (r *FAQRequest) apply(f *models.FAQ) {
	f.CategoryID = r.CategoryID
	f.Question = r.Question
	f.Answer = r.Answer
	f.Language = r.Language
	if f.Language == "" {
		f.Language = models.LanguageEnglish
	}
	f.IsPublished = r.IsPublished == nil || *r.IsPublished
}

// ListFAQs pages through FAQs matching the filter
func (s *AdminService) ListFAQs(ctx context.Context, filter store.FAQFilter) (store.OffsetPage[models.FAQ], error) {
	return s.store.ListFAQs(ctx, filter)
}

// CreateFAQ inserts a FAQ
func (s *AdminService) CreateFAQ(ctx context.Context, req *FAQRequest) (*models.FAQ, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.CreateFAQ")
	defer span.End()

	faq := &models.FAQ{}
	req.apply(faq)
	if err := s.store.CreateFAQ(ctx, faq); err != nil {
		return nil, err
	}
	return faq, nil
}

// UpdateFAQ overwrites a FAQ
func (s *AdminService) UpdateFAQ(ctx context.Context, id int64, req *FAQRequest) (*models.FAQ, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.UpdateFAQ", attribute.Int64("faq_id", id))
	defer span.End()

	faq, err := s.store.GetFAQ(ctx, id)
	if err != nil {
		return nil, err
	}
	req.apply(faq)
	if err := s.store.UpdateFAQ(ctx, faq); err != nil {
		return nil, err
	}
	return faq, nil
}

// DeleteFAQ removes a FAQ
func (s *AdminService) DeleteFAQ(ctx context.Context, id int64) error {
	return s.store.DeleteFAQ(ctx, id)
}

// ToggleFAQPublished flips a FAQ's visibility
func (s *AdminService) ToggleFAQPublished(ctx context.Context, id int64) (bool, error) {
	return s.store.ToggleFAQPublished(ctx, id)
}
