package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-messenger-backend/internal/domain"
	"github.com/tbourn/go-messenger-backend/internal/realtime"
	"github.com/tbourn/go-messenger-backend/internal/services"
)

type fakeUserSvc struct {
	createFn func(ctx context.Context, username string) (*domain.User, error)
	getFn    func(ctx context.Context, id string) (*domain.User, error)
}

func (f *fakeUserSvc) Create(ctx context.Context, username string) (*domain.User, error) {
	return f.createFn(ctx, username)
}

func (f *fakeUserSvc) Get(ctx context.Context, id string) (*domain.User, error) {
	return f.getFn(ctx, id)
}

func newUserRouter(t *testing.T, svc UserService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(nil, nil, svc, nil, realtime.NewHub(), realtime.NewTypingRegistry())
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUser)
	return r
}

func TestCreateUser_CreatedAndConflict(t *testing.T) {
	svc := &fakeUserSvc{
		createFn: func(_ context.Context, username string) (*domain.User, error) {
			if username == "taken" {
				return nil, services.ErrDuplicateUsername
			}
			return &domain.User{ID: "u1", Username: username}, nil
		},
	}
	r := newUserRouter(t, svc)

	w := doJSON(t, r, http.MethodPost, "/users", CreateUserRequest{Username: "alice"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var u domain.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil || u.ID != "u1" || u.Username != "alice" {
		t.Fatalf("unexpected body: %s (%v)", w.Body.String(), err)
	}

	if w := doJSON(t, r, http.MethodPost, "/users", CreateUserRequest{Username: "taken"}); w.Code != http.StatusConflict {
		t.Fatalf("status=%d; want 409", w.Code)
	}
}

func TestCreateUser_MissingUsername(t *testing.T) {
	svc := &fakeUserSvc{
		createFn: func(context.Context, string) (*domain.User, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	r := newUserRouter(t, svc)
	if w := doJSON(t, r, http.MethodPost, "/users", map[string]any{}); w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d; want 400", w.Code)
	}
}

func TestGetUser_FoundAndMissing(t *testing.T) {
	svc := &fakeUserSvc{
		getFn: func(_ context.Context, id string) (*domain.User, error) {
			if id == "u1" {
				return &domain.User{ID: "u1", Username: "alice"}, nil
			}
			return nil, services.ErrUserNotFound
		},
	}
	r := newUserRouter(t, svc)

	if w := doJSON(t, r, http.MethodGet, "/users/u1", nil); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/users/ghost", nil); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d; want 404", w.Code)
	}
}
