// User directory HTTP handlers.
//
// This file exposes the minimal user registry the messaging core consults
// before accepting a message:
//   - POST /users      (register)
//   - GET  /users/:id  (lookup)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-messenger-backend/internal/services"
)

// CreateUserRequest is the JSON payload for registering a user.
type CreateUserRequest struct {
	// Username must be unique across the directory.
	Username string `json:"username" binding:"required,min=1,max=255"`
}

// CreateUser handles POST /users.
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "username required (1–255 chars)")
		return
	}

	u, err := h.userSvc.Create(c.Request.Context(), req.Username)
	if err != nil {
		switch err {
		case services.ErrEmptyUsername:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case services.ErrDuplicateUsername:
			fail(c, http.StatusConflict, ErrCodeConflict, "username already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, u)
}

// GetUser handles GET /users/:id.
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.userSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch err {
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, u)
}
