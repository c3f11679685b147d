// Acceptation HTTP handlers.
//
// This file exposes REST endpoints for acceptation records — lightweight
// acknowledgement counters with a per-user accepted flag:
//   - PUT /acceptation/:id                (upsert count + mark user accepted)
//   - GET /acceptation/:id                (read the current count)
//   - GET /acceptation/:id/users/:userId  (has this user accepted?)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-messenger-backend/internal/services"
)

// UpdateAcceptationRequest is the JSON payload for upserting an acceptation.
type UpdateAcceptationRequest struct {
	// Count is the new counter value (last writer wins, must be >= 0).
	Count int `json:"count"`
	// UserID is marked as accepted; once set it is never unset.
	UserID string `json:"userId" binding:"required"`
}

// AcceptationResponse is the JSON shape of an acceptation record.
type AcceptationResponse struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// UserAcceptedResponse reports a single user's accepted flag.
type UserAcceptedResponse struct {
	AcceptationID string `json:"acceptationId"`
	UserID        string `json:"userId"`
	Accepted      bool   `json:"accepted"`
}

// UpdateAcceptation handles PUT /acceptation/:id.
//
// The record is created on first touch; subsequent writes overwrite the
// count and add the caller to the accepted set.
func (h *Handlers) UpdateAcceptation(c *gin.Context) {
	id := c.Param("id")

	var req UpdateAcceptationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "userId required")
		return
	}

	rec, err := h.acceptSvc.Update(c.Request.Context(), id, req.Count, req.UserID)
	if err != nil {
		switch err {
		case services.ErrInvalidCount, services.ErrEmptyUser, services.ErrEmptyAcceptationID:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, AcceptationResponse{ID: rec.ID, Count: rec.Count})
}

// GetAcceptation handles GET /acceptation/:id.
func (h *Handlers) GetAcceptation(c *gin.Context) {
	rec, err := h.acceptSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch err {
		case services.ErrAcceptationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "acceptation not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, AcceptationResponse{ID: rec.ID, Count: rec.Count})
}

// GetUserAccepted handles GET /acceptation/:id/users/:userId.
//
// A missing record is 404; a known record with no vote for the user answers
// 200 with accepted=false.
func (h *Handlers) GetUserAccepted(c *gin.Context) {
	id := c.Param("id")
	userID := c.Param("userId")

	accepted, err := h.acceptSvc.UserAccepted(c.Request.Context(), id, userID)
	if err != nil {
		switch err {
		case services.ErrAcceptationNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "acceptation not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, UserAcceptedResponse{
		AcceptationID: id,
		UserID:        userID,
		Accepted:      accepted,
	})
}
