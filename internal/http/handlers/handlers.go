// Handler wiring.
//
// Handlers groups the HTTP endpoints of the messaging backend. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic; the router binds the concrete services at startup.
package handlers

import (
	"context"

	"github.com/tbourn/go-messenger-backend/internal/domain"
	"github.com/tbourn/go-messenger-backend/internal/realtime"
)

// AcceptationService defines the acceptation operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AcceptationService interface {
	// Update upserts the record's count and marks userID as accepted.
	Update(ctx context.Context, id string, count int, userID string) (*domain.Acceptation, error)
	// Get fetches a record by id.
	Get(ctx context.Context, id string) (*domain.Acceptation, error)
	// UserAccepted reports whether userID has accepted the record.
	UserAccepted(ctx context.Context, id, userID string) (bool, error)
}

// UserService defines the user directory operations consumed by HTTP handlers.
type UserService interface {
	// Create registers a user with the given username.
	Create(ctx context.Context, username string) (*domain.User, error)
	// Get fetches a user by id.
	Get(ctx context.Context, id string) (*domain.User, error)
}

// BlobDownloader fetches stored image bytes by content address.
type BlobDownloader interface {
	Download(id string) ([]byte, error)
}

// BlobStore is the slice of the blob store the HTTP layer needs.
type BlobStore interface {
	BlobUploader
	BlobDownloader
}

// Handlers groups HTTP endpoints for messages, acceptations, users, images,
// and the realtime socket.
type Handlers struct {
	msgSvc    MessagingService
	acceptSvc AcceptationService
	userSvc   UserService
	blobs     BlobStore
	hub       *realtime.Hub
	typing    *realtime.TypingRegistry
}

// New constructs and returns a Handlers instance bound to the given services.
// blobs may be nil when inline images are disabled; hub and typing must be
// non-nil for the websocket endpoint.
func New(msgSvc MessagingService, acceptSvc AcceptationService, userSvc UserService, blobs BlobStore, hub *realtime.Hub, typing *realtime.TypingRegistry) *Handlers {
	return &Handlers{
		msgSvc:    msgSvc,
		acceptSvc: acceptSvc,
		userSvc:   userSvc,
		blobs:     blobs,
		hub:       hub,
		typing:    typing,
	}
}
