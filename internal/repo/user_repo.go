// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User
// model — the directory the chat service consults before accepting a
// message.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-messenger-backend/internal/domain"
)

// ErrDuplicate indicates a uniqueness violation (e.g. username or vote
// already present).
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation maps driver-specific unique-constraint failures to a
// stable answer. glebarez/sqlite often returns plain-text errors for UNIQUE
// violations, so the message is inspected as a fallback.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// CreateUser inserts a new directory entry with a generated UUID.
// Returns ErrDuplicate when the username is taken.
func CreateUser(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	u := &domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUser fetches a user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UserExists reports whether a user with the given ID exists.
func UserExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Count(&n).Error
	return n > 0, err
}
