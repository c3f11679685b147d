// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency records the outcome of a previously processed send-message
// request, keyed by (sender_id, room_id, key). A retried request carrying
// the same Idempotency-Key is answered with the originally persisted
// message instead of creating a duplicate.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	SenderID  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_sender_room_key,priority:1"`
	RoomID    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_sender_room_key,priority:2"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_sender_room_key,priority:3"`
	MessageID string    `gorm:"type:TEXT NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
