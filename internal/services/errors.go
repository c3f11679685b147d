// Package services defines the business logic for messaging, typing state,
// and acceptation records. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer. Unexpected repository failures are wrapped and
// propagated as-is so handlers fall through to a 500.
package services

import "errors"

// Validation errors (caller's fault, no retry).
var (
	// ErrInvalidIdentifier is returned when a participant id is empty or
	// contains the room-key separator.
	ErrInvalidIdentifier = errors.New("invalid user identifier")

	// ErrSelfMessage is returned when sender and receiver are the same user.
	ErrSelfMessage = errors.New("sender and receiver must differ")

	// ErrEmptyMessage is returned when a message carries neither text nor
	// an image.
	ErrEmptyMessage = errors.New("message requires text or an image")

	// ErrInvalidCount is returned when an acceptation count is negative.
	ErrInvalidCount = errors.New("count must be a non-negative integer")

	// ErrEmptyUser is returned when an operation requires a user id and
	// none was supplied.
	ErrEmptyUser = errors.New("user id is required")

	// ErrEmptyAcceptationID is returned when an acceptation operation
	// lacks a record id.
	ErrEmptyAcceptationID = errors.New("acceptation id is required")

	// ErrEmptyUsername is returned when user creation lacks a username.
	ErrEmptyUsername = errors.New("username is required")
)

// Not-found errors (referenced entity absent).
var (
	// ErrUserNotFound indicates that the sender or receiver does not exist
	// in the user directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrRoomNotFound indicates that the requested chat room has never
	// been created.
	ErrRoomNotFound = errors.New("chat room not found")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrAcceptationNotFound indicates that the acceptation record does
	// not exist.
	ErrAcceptationNotFound = errors.New("acceptation not found")

	// ErrDuplicateUsername indicates the username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")
)
