package store

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// FAQFilter narrows the FAQ listing
type FAQFilter struct {
	CategoryID *int64 `form:"category_id"`
	Language   string `form:"language"`
	Published  *bool  `form:"published"`
	Page
}

// ListFAQs returns one page of FAQs, newest first
func (s *Store) ListFAQs(ctx context.Context, filter FAQFilter) (OffsetPage[models.FAQ], error) {
	var cond conditions
	if filter.CategoryID != nil {
		cond.add("category_id = ?", *filter.CategoryID)
	}
	if filter.Language != "" {
		cond.add("language = ?", filter.Language)
	}
	if filter.Published != nil {
		cond.add("is_published = ?", *filter.Published)
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM faqs"+cond.where(), cond.args...); err != nil {
		return OffsetPage[models.FAQ]{}, fmt.Errorf("count faqs: %w", err)
	}

	limit, args := cond.paginate(filter.Page)
	var faqs []models.FAQ
	if err := s.db.SelectContext(ctx, &faqs,
		"SELECT * FROM faqs"+cond.where()+" ORDER BY created_at DESC, id DESC"+limit, args...); err != nil {
		return OffsetPage[models.FAQ]{}, fmt.Errorf("list faqs: %w", err)
	}
	return newOffsetPage(faqs, total, filter.Page), nil
}

// GetFAQ retrieves a FAQ by ID
func (s *Store) GetFAQ(ctx context.Context, id int64) (*models.FAQ, error) {
	var faq models.FAQ
	if err := s.db.GetContext(ctx, &faq, "SELECT * FROM faqs WHERE id = $1", id); err != nil {
		return nil, translate(err, ErrFAQNotFound)
	}
	return &faq, nil
}

// CreateFAQ inserts a FAQ
func (s *Store) CreateFAQ(ctx context.Context, faq *models.FAQ) error {
	query := `
		INSERT INTO faqs (category_id, question, answer, language, is_published)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, view_count, created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		faq.CategoryID, faq.Question, faq.Answer, faq.Language, faq.IsPublished,
	).Scan(&faq.ID, &faq.ViewCount, &faq.CreatedAt, &faq.UpdatedAt)
	if IsForeignKeyViolation(err) {
		return ErrCategoryNotFound
	}
	return translate(err, ErrFAQNotFound)
}

// UpdateFAQ overwrites the editable FAQ fields
func (s *Store) UpdateFAQ(ctx context.Context, faq *models.FAQ) error {
	query := `
		UPDATE faqs
		SET category_id = $1, question = $2, answer = $3, language = $4, is_published = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING view_count, created_at, updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		faq.CategoryID, faq.Question, faq.Answer, faq.Language, faq.IsPublished, faq.ID,
	).Scan(&faq.ViewCount, &faq.CreatedAt, &faq.UpdatedAt)
	if IsForeignKeyViolation(err) {
		return ErrCategoryNotFound
	}
	return translate(err, ErrFAQNotFound)
}

// DeleteFAQ removes a FAQ
func (s *Store) DeleteFAQ(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM faqs WHERE id = $1", id)
	return expectRow(res, err, ErrFAQNotFound)
}

// ToggleFAQPublished flips is_published and returns the new value
func (s *Store) ToggleFAQPublished(ctx context.Context, id int64) (bool, error) {
	var published bool
	err := s.db.GetContext(ctx, &published,
		"UPDATE faqs SET is_published = NOT is_published, updated_at = NOW() WHERE id = $1 RETURNING is_published", id)
	if err != nil {
		return false, translate(err, ErrFAQNotFound)
	}
	return published, nil
}
