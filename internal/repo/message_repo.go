// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model, plus the aggregate statistics used for conditional (ETag)
// responses in the HTTP layer.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-messenger-backend/internal/domain"
)

// CreateMessage inserts a new message row in the given room.
func CreateMessage(db *gorm.DB, roomID, senderID, receiverID, body string, imageKind domain.ImageKind, imageRef string) (*domain.Message, error) {
	if imageKind == "" {
		imageKind = domain.ImageNone
	}
	m := &domain.Message{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		ImageKind:  imageKind,
		ImageRef:   imageRef,
		CreatedAt:  time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// GetMessage fetches a message by ID.
func GetMessage(db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// RedactMessage tombstones a message: body becomes the redaction sentinel
// and the image variant is cleared. Returns ErrNotFound when no row was
// touched.
func RedactMessage(db *gorm.DB, id string) error {
	res := db.Model(&domain.Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"body":       domain.RedactedBody,
			"image_kind": domain.ImageNone,
			"image_ref":  "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMessage physically removes a message row. Ordering within the room
// derives from the surviving rows, so the delete cascade-prunes history and
// leaves no dangling reference behind. Returns ErrNotFound when no row was
// deleted.
func DeleteMessage(db *gorm.DB, id string) error {
	res := db.Where("id = ?", id).Delete(&domain.Message{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListMessagesPage(db *gorm.DB, roomID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(db *gorm.DB, roomID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM messages WHERE room_id = ?", roomID).Scan(&total).Error
	return total, err
}

// MessagesStats returns aggregate metadata for messages within a room: the
// total number of rows and the maximum UpdatedAt timestamp among them. The
// HTTP layer folds both into an ETag for the room history listing. When the
// room has no messages, count is 0 and maxUpdatedAt is nil.
func MessagesStats(ctx context.Context, db *gorm.DB, roomID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Message{}).Where("room_id = ?", roomID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
