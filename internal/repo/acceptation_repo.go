// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Acceptation record and its per-user votes.
//
// The upsert path uses native ON CONFLICT clauses rather than
// read-then-write so concurrent updates to the same record cannot lose the
// create: the record is created on first update if absent, count is
// last-writer-wins, and a user's accept is monotonic.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-messenger-backend/internal/domain"
)

// UpsertAcceptation creates the record if absent, unconditionally updates
// the count (last-writer-wins), and marks userID as accepted. Re-accepting
// is a no-op thanks to the unique (acceptation_id, user_id) vote index.
func UpsertAcceptation(ctx context.Context, db *gorm.DB, id string, count int, userID string) (*domain.Acceptation, error) {
	now := time.Now().UTC()
	rec := &domain.Acceptation{
		ID:        id,
		Count:     count,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{"count": count, "updated_at": now}),
		}).Create(rec).Error; err != nil {
			return err
		}

		vote := &domain.AcceptationVote{
			ID:            uuid.NewString(),
			AcceptationID: id,
			UserID:        userID,
			CreatedAt:     now,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(vote).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetAcceptation fetches a record by ID, or ErrNotFound.
func GetAcceptation(ctx context.Context, db *gorm.DB, id string) (*domain.Acceptation, error) {
	var rec domain.Acceptation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// HasAccepted reports whether userID holds a vote on the record.
func HasAccepted(ctx context.Context, db *gorm.DB, id, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.AcceptationVote{}).
		Where("acceptation_id = ? AND user_id = ?", id, userID).
		Count(&n).Error
	return n > 0, err
}
