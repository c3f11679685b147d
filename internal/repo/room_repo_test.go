package repo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tbourn/go-messenger-backend/internal/domain"
)

func TestUpsertRoom_CreatesThenFinds(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	key := domain.RoomKey("u1", "u2")

	room, err := UpsertRoom(ctx, db, key, "u1", "u2")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if room.ID != key {
		t.Fatalf("room id = %q; want %q", room.ID, key)
	}

	// Second upsert must find the same row, not create another.
	again, err := UpsertRoom(ctx, db, key, "u1", "u2")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != room.ID || !again.CreatedAt.Equal(room.CreatedAt) {
		t.Fatalf("second upsert returned a different row: %+v vs %+v", again, room)
	}

	var n int64
	if err := db.Model(&domain.ChatRoom{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 room, got %d", n)
	}
}

func TestUpsertRoom_ConcurrentFirstSenders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	key := domain.RoomKey("u1", "u2")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := UpsertRoom(ctx, db, key, "u1", "u2"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent upsert: %v", err)
	}

	var n int64
	if err := db.Model(&domain.ChatRoom{}).Where("id = ?", key).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected exactly one room record, got %d", n)
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	db := newTestDB(t)
	if _, err := GetRoom(context.Background(), db, "a_b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

func TestRoomExists(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	key := domain.RoomKey("u1", "u2")

	ok, err := RoomExists(ctx, db, key)
	if err != nil || ok {
		t.Fatalf("exists before create = (%v, %v); want (false, nil)", ok, err)
	}
	if _, err := UpsertRoom(ctx, db, key, "u1", "u2"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	ok, err = RoomExists(ctx, db, key)
	if err != nil || !ok {
		t.Fatalf("exists after create = (%v, %v); want (true, nil)", ok, err)
	}
}
