// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting, and mounts the realtime websocket
// endpoint next to the REST surface.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-messenger-backend/internal/config"
	"github.com/tbourn/go-messenger-backend/internal/domain"
	"github.com/tbourn/go-messenger-backend/internal/http/handlers"
	"github.com/tbourn/go-messenger-backend/internal/http/middleware"
	"github.com/tbourn/go-messenger-backend/internal/realtime"
	"github.com/tbourn/go-messenger-backend/internal/repo"
	"github.com/tbourn/go-messenger-backend/internal/services"
	"github.com/tbourn/go-messenger-backend/internal/storage"
)

// chatRepoShim adapts the repository free functions to the services.ChatRepo
// interface expected by the ChatService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type chatRepoShim struct{}

func (chatRepoShim) UserExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	return repo.UserExists(ctx, db, id)
}

func (chatRepoShim) UpsertRoom(ctx context.Context, db *gorm.DB, key, userA, userB string) (*domain.ChatRoom, error) {
	return repo.UpsertRoom(ctx, db, key, userA, userB)
}

func (chatRepoShim) RoomExists(ctx context.Context, db *gorm.DB, key string) (bool, error) {
	return repo.RoomExists(ctx, db, key)
}

func (chatRepoShim) CreateMessage(db *gorm.DB, roomID, senderID, receiverID, body string, imageKind domain.ImageKind, imageRef string) (*domain.Message, error) {
	return repo.CreateMessage(db, roomID, senderID, receiverID, body, imageKind, imageRef)
}

func (chatRepoShim) GetMessage(db *gorm.DB, id string) (*domain.Message, error) {
	return repo.GetMessage(db, id)
}

func (chatRepoShim) RedactMessage(db *gorm.DB, id string) error {
	return repo.RedactMessage(db, id)
}

func (chatRepoShim) DeleteMessage(db *gorm.DB, id string) error {
	return repo.DeleteMessage(db, id)
}

func (chatRepoShim) CountMessages(db *gorm.DB, roomID string) (int64, error) {
	return repo.CountMessages(db, roomID)
}

func (chatRepoShim) ListMessagesPage(db *gorm.DB, roomID string, offset, limit int) ([]domain.Message, error) {
	return repo.ListMessagesPage(db, roomID, offset, limit)
}

// acceptationRepoShim adapts repo functions to services.AcceptationRepo.
type acceptationRepoShim struct{}

func (acceptationRepoShim) UpsertAcceptation(ctx context.Context, db *gorm.DB, id string, count int, userID string) (*domain.Acceptation, error) {
	return repo.UpsertAcceptation(ctx, db, id, count, userID)
}

func (acceptationRepoShim) GetAcceptation(ctx context.Context, db *gorm.DB, id string) (*domain.Acceptation, error) {
	return repo.GetAcceptation(ctx, db, id)
}

func (acceptationRepoShim) HasAccepted(ctx context.Context, db *gorm.DB, id, userID string) (bool, error) {
	return repo.HasAccepted(ctx, db, id, userID)
}

// userRepoShim adapts repo functions to services.UserRepo.
type userRepoShim struct{}

func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, username string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, username)
}

func (userRepoShim) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting, CORS
// and security headers, health and metrics endpoints, and then mounts the
// public API and the websocket endpoint.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip (websocket excluded; hijacked connections cannot be compressed)
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, blobs *storage.BlobStore, hub *realtime.Hub, typing *realtime.TypingRegistry, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (4 MiB; inline images ride in the JSON body)
	r.Use(limitBody(4 << 20))

	// 6) Compress REST responses; the websocket endpoint is excluded.
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "Idempotency-Key"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "Idempotency-Key"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/hub
	chatSvc := services.NewChatService(db, chatRepoShim{}, hub)
	if cfg.MaxBodyRunes > 0 {
		chatSvc.MaxBodyRunes = cfg.MaxBodyRunes
	}
	acceptSvc := services.NewAcceptationService(db, acceptationRepoShim{})
	userSvc := services.NewUserService(db, userRepoShim{})

	var bs handlers.BlobStore
	if blobs != nil {
		bs = blobs
	}
	h := handlers.New(chatSvc, acceptSvc, userSvc, bs, hub, typing)

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Messages
		api.POST("/send-message", h.SendMessage)
		api.GET("/message/:chatRoomId", h.ListMessages)
		api.PUT("/edit-message/:messageId", h.EditMessage)
		api.DELETE("/delete-message/:messageId", h.DeleteMessage)

		// Acceptations
		api.PUT("/acceptation/:id", h.UpdateAcceptation)
		api.GET("/acceptation/:id", h.GetAcceptation)
		api.GET("/acceptation/:id/users/:userId", h.GetUserAccepted)

		// User directory
		api.POST("/users", h.CreateUser)
		api.GET("/users/:id", h.GetUser)

		// Inline images
		api.GET("/images/:id", h.GetImage)
	}

	// Realtime socket (mounted at the root regardless of base path)
	r.GET("/ws", h.Socket)
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
