// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ChatRoom
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a room is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-messenger-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// UpsertRoom finds or creates the room identified by key. Creation is
// resolved with INSERT ... ON CONFLICT DO NOTHING followed by a refetch, so
// two concurrent first-senders for the same pair converge on a single row
// instead of racing a check-then-create.
func UpsertRoom(ctx context.Context, db *gorm.DB, key, userA, userB string) (*domain.ChatRoom, error) {
	room := &domain.ChatRoom{
		ID:        key,
		UserA:     userA,
		UserB:     userB,
		CreatedAt: time.Now().UTC(),
	}
	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(room).Error
	if err != nil {
		return nil, err
	}
	// Refetch so the loser of a concurrent insert sees the winner's row.
	return GetRoom(ctx, db, key)
}

// GetRoom fetches a room by its canonical key. Returns ErrNotFound when the
// room has never been created.
func GetRoom(ctx context.Context, db *gorm.DB, key string) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := db.WithContext(ctx).Where("id = ?", key).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// RoomExists reports whether a room with the given key exists.
func RoomExists(ctx context.Context, db *gorm.DB, key string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.ChatRoom{}).
		Where("id = ?", key).
		Count(&n).Error
	return n > 0, err
}
