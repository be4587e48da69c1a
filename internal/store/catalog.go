package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"storefront/internal/models"
)

const productColumns = `id, category_id, name, slug, description, price, stock, available, created_at, updated_at`

// ProductFilter narrows product listings
type ProductFilter struct {
	CategoryID *int64 `form:"category_id"`
	Available  *bool  `form:"available"`
	Search     string `form:"search"`
	Page
}

// ListCategories returns every category ordered by name
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategoryBySlug retrieves a category by slug
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE slug = $1", slug)
	if err != nil {
		return nil, translate(err, ErrCategoryNotFound)
	}
	return &category, nil
}

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if err != nil {
		return nil, translate(err, ErrCategoryNotFound)
	}
	return &category, nil
}

// CreateCategory inserts a category, filling in its ID and timestamps
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (name, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := s.db.QueryRowxContext(ctx, query, category.Name, category.Slug, category.Description).
		Scan(&category.ID, &category.CreatedAt)
	return translate(err, ErrCategoryNotFound)
}

// UpdateCategory overwrites name, slug and description
func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = $1, slug = $2, description = $3 WHERE id = $4",
		category.Name, category.Slug, category.Description, category.ID)
	return expectRow(res, translate(err, ErrCategoryNotFound), ErrCategoryNotFound)
}

// DeleteCategory removes a category together with its products
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	return expectRow(res, translate(err, ErrCategoryNotFound), ErrCategoryNotFound)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		return nil, translate(err, ErrProductNotFound)
	}
	return &product, nil
}

// GetAvailableProductBySlug retrieves a product shown in the storefront
func (s *Store) GetAvailableProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT "+productColumns+" FROM products WHERE slug = $1 AND available = TRUE", slug)
	if err != nil {
		return nil, translate(err, ErrProductNotFound)
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs, keyed by ID
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	out := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In("SELECT "+productColumns+" FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

// LatestAvailableProducts returns the newest products that are for sale
func (s *Store) LatestAvailableProducts(ctx context.Context, limit int) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT "+productColumns+" FROM products WHERE available = TRUE ORDER BY created_at DESC, id DESC LIMIT $1",
		limit)
	if err != nil {
		return nil, fmt.Errorf("latest products: %w", err)
	}
	return products, nil
}

// ListProducts returns one page of products matching the filter, newest first
func (s *Store) ListProducts(ctx context.Context, filter ProductFilter) (OffsetPage[models.Product], error) {
	var cond conditions
	if filter.CategoryID != nil {
		cond.add("category_id = ?", *filter.CategoryID)
	}
	if filter.Available != nil {
		cond.add("available = ?", *filter.Available)
	}
	if filter.Search != "" {
		cond.add("(name ILIKE ? OR description ILIKE ?)", "%"+filter.Search+"%", "%"+filter.Search+"%")
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products"+cond.where(), cond.args...); err != nil {
		return OffsetPage[models.Product]{}, fmt.Errorf("count products: %w", err)
	}

	limit, args := cond.paginate(filter.Page)
	var products []models.Product
	query := "SELECT " + productColumns + " FROM products" + cond.where() + " ORDER BY created_at DESC, id DESC" + limit
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return OffsetPage[models.Product]{}, fmt.Errorf("list products: %w", err)
	}

	return newOffsetPage(products, total, filter.Page), nil
}

// CreateProduct inserts a product and its zeroed stats row in one transaction
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.WithTransaction(ctx, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO products (category_id, name, slug, description, price, stock, available)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at`

		err := tx.QueryRowxContext(ctx, query,
			product.CategoryID, product.Name, product.Slug, product.Description,
			product.Price.Round(2), product.Stock, product.Available,
		).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return translate(err, ErrProductNotFound)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO product_stats (product_id) VALUES ($1) ON CONFLICT (product_id) DO NOTHING",
			product.ID)
		if err != nil {
			return fmt.Errorf("create product stats: %w", err)
		}
		return nil
	})
}

// UpdateProduct overwrites every editable product field
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET category_id = $1, name = $2, slug = $3, description = $4,
		    price = $5, stock = $6, available = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		product.CategoryID, product.Name, product.Slug, product.Description,
		product.Price.Round(2), product.Stock, product.Available, product.ID,
	).Scan(&product.UpdatedAt)
	return translate(err, ErrProductNotFound)
}

// DeleteProduct removes a product. Products referenced by orders cannot be deleted.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	return expectRow(res, translate(err, ErrProductNotFound), ErrProductNotFound)
}
