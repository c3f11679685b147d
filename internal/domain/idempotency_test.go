package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestIdempotency_Migration_Indexes_AndInsert(t *testing.T) {
	db := newTestDB(t)

	m := db.Migrator()
	_ = m.DropTable("idempotency")

	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !m.HasTable(&Idempotency{}) {
		t.Fatalf("expected table %q to exist", Idempotency{}.TableName())
	}
	if !m.HasIndex(&Idempotency{}, "ux_sender_room_key") {
		t.Fatalf("expected composite index ux_sender_room_key to exist")
	}

	now := time.Now().UTC()
	rec := &Idempotency{
		ID:        "id-1",
		SenderID:  "u1",
		RoomID:    "u1_u2",
		Key:       "k1",
		MessageID: "m1",
		Status:    201,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("insert valid: %v", err)
	}

	var got Idempotency
	if err := db.First(&got, "id = ?", "id-1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.SenderID != "u1" || got.RoomID != "u1_u2" || got.Key != "k1" || got.MessageID != "m1" || got.Status != 201 {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.ExpiresAt.Before(now) {
		t.Fatalf("ExpiresAt should be after CreatedAt: %v vs %v", got.ExpiresAt, now)
	}

	// (sender_id, room_id, key) must be unique
	dup := &Idempotency{
		ID:        "id-2",
		SenderID:  "u1",
		RoomID:    "u1_u2",
		Key:       "k1",
		MessageID: "m2",
		Status:    200,
		CreatedAt: now,
		ExpiresAt: now.Add(2 * time.Hour),
	}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE constraint violation on (sender_id, room_id, key)")
	}
}
