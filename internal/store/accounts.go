package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"storefront/internal/models"
)

// CreateUser inserts a user and makes sure the profile and stats rows exist
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.WithTransaction(ctx, DefaultTxOptions(), func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO users (username, email, password_hash, is_staff, is_active)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at`

		err := tx.QueryRowxContext(ctx, query,
			user.Username, user.Email, user.PasswordHash, user.IsStaff, user.IsActive,
		).Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			return translate(err, ErrUserNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING", user.ID); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING", user.ID); err != nil {
			return fmt.Errorf("create user stats: %w", err)
		}
		return nil
	})
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id); err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE username = $1", username); err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &user, nil
}

// ListUsers returns one page of users, newest first
func (s *Store) ListUsers(ctx context.Context, page Page) (OffsetPage[models.User], error) {
	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"); err != nil {
		return OffsetPage[models.User]{}, fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	err := s.db.SelectContext(ctx, &users,
		"SELECT * FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		page.Limit(), page.Offset())
	if err != nil {
		return OffsetPage[models.User]{}, fmt.Errorf("list users: %w", err)
	}
	return newOffsetPage(users, total, page), nil
}

// ToggleUserActive flips is_active and returns the new value
func (s *Store) ToggleUserActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := s.db.GetContext(ctx, &active,
		"UPDATE users SET is_active = NOT is_active WHERE id = $1 RETURNING is_active", id)
	if err != nil {
		return false, translate(err, ErrUserNotFound)
	}
	return active, nil
}

// GetProfile retrieves the profile of a user
func (s *Store) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.GetContext(ctx, &profile, "SELECT * FROM profiles WHERE user_id = $1", userID); err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &profile, nil
}

// UpdateProfile overwrites the profile fields
func (s *Store) UpdateProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE profiles
		SET phone = $1, address = $2, city = $3, postal_code = $4, country = $5, updated_at = NOW()
		WHERE user_id = $6
		RETURNING updated_at`

	err := s.db.QueryRowxContext(ctx, query,
		profile.Phone, profile.Address, profile.City, profile.PostalCode, profile.Country, profile.UserID,
	).Scan(&profile.UpdatedAt)
	return translate(err, ErrUserNotFound)
}

// ListAddresses returns a user's saved addresses
func (s *Store) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	addresses := []models.Address{}
	err := s.db.SelectContext(ctx, &addresses,
		"SELECT * FROM addresses WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

// CreateAddress inserts an address
func (s *Store) CreateAddress(ctx context.Context, addr *models.Address) error {
	query := `
		INSERT INTO addresses (user_id, address_type, address, city, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := s.db.QueryRowxContext(ctx, query,
		addr.UserID, addr.AddressType, addr.Address, addr.City, addr.PostalCode, addr.Country,
	).Scan(&addr.ID)
	return translate(err, ErrUserNotFound)
}

// UpdateAddress overwrites an address owned by addr.UserID
func (s *Store) UpdateAddress(ctx context.Context, addr *models.Address) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE addresses
		SET address_type = $1, address = $2, city = $3, postal_code = $4, country = $5
		WHERE id = $6 AND user_id = $7`,
		addr.AddressType, addr.Address, addr.City, addr.PostalCode, addr.Country, addr.ID, addr.UserID)
	return expectRow(res, err, ErrAddressNotFound)
}

// GetUserStats retrieves the purchase stats of a user
func (s *Store) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	var stats models.UserStats
	if err := s.db.GetContext(ctx, &stats, "SELECT * FROM user_stats WHERE user_id = $1", userID); err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &stats, nil
}
