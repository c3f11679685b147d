// Package services – ChatService
//
// This file implements the ChatService, the application-level component
// that owns the message lifecycle between two users. It validates
// participants, resolves the canonical room for a pair, persists room and
// message atomically, and — only after durable persistence — hands the
// event to the broadcast hub so live subscribers never observe a message
// that a reader of history would not also find.
//
// Service-level errors (e.g., ErrUserNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// room and message identifiers.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-messenger-backend/internal/domain"
	"github.com/tbourn/go-messenger-backend/internal/realtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ChatRepo defines the repository contract required by ChatService.
// Implementations are responsible for persistence of rooms and messages.
type ChatRepo interface {
	// UserExists reports whether the user id is present in the directory.
	UserExists(ctx context.Context, db *gorm.DB, id string) (bool, error)

	// UpsertRoom finds or creates the room for the key (race-safe).
	UpsertRoom(ctx context.Context, db *gorm.DB, key, userA, userB string) (*domain.ChatRoom, error)

	// RoomExists reports whether a room with the key was ever created.
	RoomExists(ctx context.Context, db *gorm.DB, key string) (bool, error)

	// CreateMessage inserts a message row in the room.
	CreateMessage(db *gorm.DB, roomID, senderID, receiverID, body string, imageKind domain.ImageKind, imageRef string) (*domain.Message, error)

	// GetMessage fetches a message by id.
	GetMessage(db *gorm.DB, id string) (*domain.Message, error)

	// RedactMessage tombstones a message in place.
	RedactMessage(db *gorm.DB, id string) error

	// DeleteMessage hard-deletes a message row.
	DeleteMessage(db *gorm.DB, id string) error

	// CountMessages returns the room's total for pagination.
	CountMessages(db *gorm.DB, roomID string) (int64, error)

	// ListMessagesPage returns a chronological page of the room's messages.
	ListMessagesPage(db *gorm.DB, roomID string, offset, limit int) ([]domain.Message, error)
}

// Publisher is the slice of the broadcast hub the service needs: fire and
// forget fan-out of one event to every live subscriber.
type Publisher interface {
	Publish(event string, data any)
}

// ChatService coordinates message persistence and live fan-out. Broadcast
// strictly follows commit: a failed persistence never publishes, and a
// publish never fails the operation.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the room/message repository used by this service.
	Repo ChatRepo
	// Hub receives an event after every successful mutation.
	Hub Publisher

	// MaxBodyRunes caps message bodies by rune length (0 = unlimited).
	MaxBodyRunes int
}

// NewChatService constructs a ChatService with a sane body cap.
func NewChatService(db *gorm.DB, r ChatRepo, hub Publisher) *ChatService {
	return &ChatService{
		DB:           db,
		Repo:         r,
		Hub:          hub,
		MaxBodyRunes: 4000,
	}
}

// ErrBodyTooLong is returned when a message body exceeds MaxBodyRunes.
var ErrBodyTooLong = errors.New("message body too long")

// validParticipant rejects ids that are empty or would make the derived
// room key ambiguous.
func validParticipant(id string) bool {
	return id != "" && !strings.Contains(id, domain.RoomKeySeparator)
}

// SendMessage validates the request, finds or creates the pair's room,
// persists the message, and broadcasts it. Image payload is the already
// resolved tagged variant: pass domain.ImageNone for text-only messages.
//
// Room upsert and message insert commit in one transaction, so a message
// never exists without its room and a failure leaves no partial state.
func (s *ChatService) SendMessage(ctx context.Context, senderID, receiverID, body string, imageKind domain.ImageKind, imageRef string) (*domain.Message, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "SendMessage",
		trace.WithAttributes(
			attribute.String("sender.id", senderID),
			attribute.String("receiver.id", receiverID),
		),
	)
	defer span.End()

	if !validParticipant(senderID) || !validParticipant(receiverID) {
		return nil, ErrInvalidIdentifier
	}
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}

	body = strings.TrimSpace(body)
	if imageKind == "" {
		imageKind = domain.ImageNone
	}
	if body == "" && imageKind == domain.ImageNone {
		return nil, ErrEmptyMessage
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrBodyTooLong
	}

	// Both participants must exist before any write happens, so a failed
	// send leaves no room behind.
	for _, id := range []string{senderID, receiverID} {
		exists, err := s.Repo.UserExists(ctx, s.DB, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrUserNotFound
		}
	}

	key := domain.RoomKey(senderID, receiverID)
	span.SetAttributes(attribute.String("room.key", key))

	var msg *domain.Message
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.Repo.UpsertRoom(ctx, tx, key, senderID, receiverID); err != nil {
			return err
		}
		m, err := s.Repo.CreateMessage(tx, key, senderID, receiverID, body, imageKind, imageRef)
		if err != nil {
			return err
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Fan-out only after the commit above.
	s.Hub.Publish(realtime.EventNewMessage, msg)
	return msg, nil
}

// GetMessages returns a chronological page of an existing room's history.
// Reads go straight to the store, so every send that completed before this
// call is reflected. Returns ErrRoomNotFound for a room that was never
// created.
func (s *ChatService) GetMessages(ctx context.Context, roomKey string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "GetMessages",
		trace.WithAttributes(
			attribute.String("room.key", roomKey),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	exists, err := s.Repo.RoomExists(ctx, s.DB, roomKey)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, ErrRoomNotFound
	}

	db := s.DB.WithContext(ctx)
	total, err := s.Repo.CountMessages(db, roomKey)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := s.Repo.ListMessagesPage(db, roomKey, offset, pageSize)
	return items, total, err
}

// EditMessage redacts a message in place: the body becomes the fixed
// sentinel and any image variant is cleared. The row stays in the room
// history as a tombstone. Broadcasts messageUpdated after the write.
func (s *ChatService) EditMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "EditMessage",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	db := s.DB.WithContext(ctx)
	msg, err := s.Repo.GetMessage(db, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	if err := s.Repo.RedactMessage(db, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	msg.Redact()

	s.Hub.Publish(realtime.EventMessageUpdated, realtime.UpdatePayload{
		ID:   msg.ID,
		Body: msg.Body,
	})
	return msg, nil
}

// DeleteMessage hard-deletes a message. Room history derives from the
// surviving rows, so the delete prunes the room's ordering as well — no
// dangling reference is left behind. Broadcasts messageDeleted after the
// write.
func (s *ChatService) DeleteMessage(ctx context.Context, messageID string) error {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "DeleteMessage",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	db := s.DB.WithContext(ctx)
	if err := s.Repo.DeleteMessage(db, messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	s.Hub.Publish(realtime.EventMessageDeleted, realtime.DeletePayload{ID: messageID})
	return nil
}
