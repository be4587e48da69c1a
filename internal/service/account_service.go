package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"
)

// AccountStore is the persistence AccountService needs
type AccountStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
	ListAddresses(ctx context.Context, userID int64) ([]models.Address, error)
	CreateAddress(ctx context.Context, addr *models.Address) error
	UpdateAddress(ctx context.Context, addr *models.Address) error
}

// AccountService handles signup, login and profile data
type AccountService struct {
	store  AccountStore
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(store AccountStore, tokens *auth.TokenManager) *AccountService {
	return &AccountService{store: store, tokens: tokens, logger: util.GetLogger()}
}

// SignupRequest is the registration form
type SignupRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=150,alphanum"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
}

// LoginRequest is the login form
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries a freshly issued token
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// ProfileRequest is the editable part of a profile
type ProfileRequest struct {
	Phone      string `json:"phone" binding:"max=20"`
	Address    string `json:"address" binding:"max=250"`
	City       string `json:"city" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"max=100"`
}

// AddressRequest is the address form
type AddressRequest struct {
	AddressType string `json:"address_type" binding:"required,oneof=shipping billing"`
	Address     string `json:"address" binding:"required,max=250"`
	City        string `json:"city" binding:"required,max=100"`
	PostalCode  string `json:"postal_code" binding:"required,max=20"`
	Country     string `json:"country" binding:"required,max=100"`
}

// ProfileView is the profile page
type ProfileView struct {
	User      *models.User     `json:"user"`
	Profile   *models.Profile  `json:"profile"`
	Addresses []models.Address `json:"addresses"`
}

// Signup creates an account with an empty profile and logs it in
func (s *AccountService) Signup(ctx context.Context, req *SignupRequest) (*AuthResponse, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Signup")
	defer span.End()

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &ValidationError{Field: "username", Message: "username or email already taken"}
		}
		return nil, err
	}

	s.logger.Info("User signed up", zap.Int64("user_id", user.ID))
	return s.issue(user)
}

// Login checks credentials and returns a token
func (s *AccountService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.Login")
	defer span.End()

	user, err := s.store.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	return s.issue(user)
}

func (s *AccountService) issue(user *models.User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID, user.Username, user.IsStaff)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// ActiveUser reloads the account behind a token. Disabled accounts get
// ErrAccountDisabled even while their token is still valid.
func (s *AccountService) ActiveUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// GetProfile returns the user, profile and saved addresses
func (s *AccountService) GetProfile(ctx context.Context, userID int64) (*ProfileView, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.GetProfile")
	defer span.End()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	addresses, err := s.store.ListAddresses(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileView{User: user, Profile: profile, Addresses: addresses}, nil
}

// UpdateProfile overwrites the user's profile
func (s *AccountService) UpdateProfile(ctx context.Context, userID int64, req *ProfileRequest) (*models.Profile, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.UpdateProfile")
	defer span.End()

	profile := &models.Profile{
		UserID:     userID,
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	}
	if err := s.store.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// ListAddresses returns the user's saved addresses
func (s *AccountService) ListAddresses(ctx context.Context, userID int64) ([]models.Address, error) {
	return s.store.ListAddresses(ctx, userID)
}

// AddAddress saves a new address for the user
func (s *AccountService) AddAddress(ctx context.Context, userID int64, req *AddressRequest) (*models.Address, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.AddAddress")
	defer span.End()

	addr := addressFromRequest(userID, req)
	if err := s.store.CreateAddress(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// UpdateAddress edits an address owned by the user
func (s *AccountService) UpdateAddress(ctx context.Context, userID, addressID int64, req *AddressRequest) (*models.Address, error) {
	ctx, span := util.StartSpan(ctx, "AccountService.UpdateAddress")
	defer span.End()

	addr := addressFromRequest(userID, req)
	addr.ID = addressID
	if err := s.store.UpdateAddress(ctx, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

func addressFromRequest(userID int64, req *AddressRequest) *models.Address {
	return &models.Address{
		UserID:      userID,
		AddressType: req.AddressType,
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Country:     req.Country,
	}
}
