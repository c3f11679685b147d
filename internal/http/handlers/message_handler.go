// Message HTTP handlers.
//
// This file exposes the REST endpoints of the messaging core:
//   - POST   /send-message              (send a message to another user)
//   - GET    /message/:chatRoomId       (list a room's history, paginated, ETag support)
//   - PUT    /edit-message/:messageId   (redact a message in place)
//   - DELETE /delete-message/:messageId (remove a message permanently)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - resolve inline image payloads against the blob store
//   - delegate to application services (MessagingService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// send exists for (sender, room, key), the handler returns that recorded
// message and sets `Idempotency-Replayed: true` instead of sending again.
package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-messenger-backend/internal/domain"
	"github.com/tbourn/go-messenger-backend/internal/repo"
	"github.com/tbourn/go-messenger-backend/internal/services"
	"github.com/tbourn/go-messenger-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// MessagingService defines the message lifecycle operations consumed by the
// HTTP layer.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MessagingService interface {
	// SendMessage validates, persists, and broadcasts a message between two users.
	SendMessage(ctx context.Context, senderID, receiverID, body string, imageKind domain.ImageKind, imageRef string) (*domain.Message, error)
	// GetMessages returns a chronological page of a room's messages and the total count.
	GetMessages(ctx context.Context, roomKey string, page, pageSize int) ([]domain.Message, int64, error)
	// EditMessage redacts a message in place and returns the tombstoned row.
	EditMessage(ctx context.Context, messageID string) (*domain.Message, error)
	// DeleteMessage removes a message permanently.
	DeleteMessage(ctx context.Context, messageID string) error
}

// BlobUploader stores inline image bytes and returns their content address.
type BlobUploader interface {
	Upload(data []byte) (string, error)
}

//
// DTOs
//

// SendMessageRequest is the JSON payload for sending a message.
//
// Exactly one of Message / ImgURL / ImgData must be non-empty (a message may
// carry both text and an image, but not both image forms at once). ImgData is
// standard base64; the handler stores it in the blob store and records the
// resulting content address on the message.
type SendMessageRequest struct {
	// SenderID is the id of the sending user.
	SenderID string `json:"senderId" binding:"required"`
	// ReceiverID is the id of the receiving user.
	ReceiverID string `json:"receiverId" binding:"required"`
	// Message is the text body; optional when an image is attached.
	Message string `json:"message"`
	// ImgURL attaches an image by external URL.
	ImgURL string `json:"imgUrl"`
	// ImgData attaches an inline image as base64 bytes.
	ImgData string `json:"imgData"`
}

// SendMessageResponse is the JSON envelope for a newly persisted message.
type SendMessageResponse struct {
	// Message is the persisted row, as broadcast to live subscribers.
	Message *domain.Message `json:"message"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListMessagesResponse contains a page of room messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses page/page_size from query parameters, applies sane
// defaults and caps, and returns the validated (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeBody normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeBody(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxBodyRunes inspects the concrete service for a configured
// body-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxBodyRunes(svc MessagingService) int {
	const fallback = 4000
	if cs, ok := svc.(*services.ChatService); ok {
		if cs.MaxBodyRunes > 0 {
			return cs.MaxBodyRunes
		}
	}
	return fallback
}

// getIdempotencyKey reads the Idempotency-Key header if the client sent one.
func getIdempotencyKey(c *gin.Context) (string, bool) {
	if v := strings.TrimSpace(c.GetHeader("Idempotency-Key")); v != "" {
		return v, true
	}
	return "", false
}

// resolveImage maps the request's image fields onto the tagged variant
// stored on the message. Inline bytes are persisted to the blob store and
// recorded by content address.
func (h *Handlers) resolveImage(req *SendMessageRequest) (domain.ImageKind, string, error) {
	switch {
	case req.ImgURL != "" && req.ImgData != "":
		return domain.ImageNone, "", fmt.Errorf("imgUrl and imgData are mutually exclusive")
	case req.ImgURL != "":
		u := strings.TrimSpace(req.ImgURL)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return domain.ImageNone, "", fmt.Errorf("imgUrl must be an http(s) URL")
		}
		return domain.ImageURL, u, nil
	case req.ImgData != "":
		raw, err := base64.StdEncoding.DecodeString(req.ImgData)
		if err != nil || len(raw) == 0 {
			return domain.ImageNone, "", fmt.Errorf("imgData must be non-empty base64")
		}
		if h.blobs == nil {
			return domain.ImageNone, "", fmt.Errorf("inline images are not enabled")
		}
		id, err := h.blobs.Upload(raw)
		if err != nil {
			return domain.ImageNone, "", err
		}
		return domain.ImageBlob, id, nil
	default:
		return domain.ImageNone, "", nil
	}
}

//
// Handlers
//

// SendMessage handles POST /send-message.
//
// It normalizes the body, resolves the optional image attachment, replays a
// previous result when an Idempotency-Key matches, and otherwise delegates
// to the messaging service. On success it returns 201 with the persisted
// message (the same payload live subscribers receive as `newMessage`).
func (h *Handlers) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "senderId and receiverId required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	body := sanitizeBody(req.Message)
	maxRunes := discoverMaxBodyRunes(h.msgSvc)
	if maxRunes > 0 && utf8.RuneCountInString(body) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", maxRunes))
		return
	}

	imageKind, imageRef, err := h.resolveImage(&req)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	roomKey := domain.RoomKey(req.SenderID, req.ReceiverID)

	// Idempotency (replay path) – return the previously recorded send.
	idemKey, _ := getIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.ChatService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, req.SenderID, roomKey, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, SendMessageResponse{Message: prev})
					return
				}
			}
		}
	}

	m, err := h.msgSvc.SendMessage(ctx, req.SenderID, req.ReceiverID, body, imageKind, imageRef)
	if err != nil {
		switch {
		case err == services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		case err == services.ErrInvalidIdentifier, err == services.ErrSelfMessage,
			err == services.ErrEmptyMessage, err == services.ErrBodyTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSendFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.ChatService); okSvc && svc.DB != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, svc.DB, req.SenderID, roomKey, idemKey, m.ID, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, SendMessageResponse{Message: m})
}

// ListMessages handles GET /message/:chatRoomId.
//
// History is returned oldest-first so clients can render it top to bottom.
// A weak ETag derived from the room's row count and latest update lets
// pollers skip unchanged pages with 304.
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	roomKey := c.Param("chatRoomId")
	if roomKey == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chat room id required")
		return
	}

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.msgSvc.(*services.ChatService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.MessagesStats(ctx, db, roomKey)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, roomKey, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.msgSvc.GetMessages(ctx, roomKey, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrRoomNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat room not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// EditMessage handles PUT /edit-message/:messageId.
//
// Editing is redaction: the body is replaced with the fixed sentinel and any
// image attachment is dropped, while the row keeps its place in history.
func (h *Handlers) EditMessage(c *gin.Context) {
	messageID := c.Param("messageId")

	m, err := h.msgSvc.EditMessage(c.Request.Context(), messageID)
	if err != nil {
		switch err {
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, SendMessageResponse{Message: m})
}

// DeleteMessage handles DELETE /delete-message/:messageId.
func (h *Handlers) DeleteMessage(c *gin.Context) {
	messageID := c.Param("messageId")

	if err := h.msgSvc.DeleteMessage(c.Request.Context(), messageID); err != nil {
		switch err {
		case services.ErrMessageNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}
