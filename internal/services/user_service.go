// Package services – UserService
//
// The user directory the messaging core consults before accepting a
// message. Kept deliberately thin: registration and lookup, no sessions or
// credentials (authentication is out of scope for this backend).
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-messenger-backend/internal/domain"
	"github.com/tbourn/go-messenger-backend/internal/repo"
)

// UserRepo defines the repository contract required by UserService.
type UserRepo interface {
	CreateUser(ctx context.Context, db *gorm.DB, username string) (*domain.User, error)
	GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)
}

// UserService provides directory operations for the HTTP layer.
type UserService struct {
	DB   *gorm.DB
	Repo UserRepo
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, r UserRepo) *UserService {
	return &UserService{DB: db, Repo: r}
}

// Create registers a new user with the given username.
func (s *UserService) Create(ctx context.Context, username string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrEmptyUsername
	}
	u, err := s.Repo.CreateUser(ctx, s.DB, username)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return u, nil
}

// Get fetches a user by id, or ErrUserNotFound.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}
