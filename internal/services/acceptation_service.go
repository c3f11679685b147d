// Package services – AcceptationService
//
// This file implements the acceptation workflow: a lightweight ack record
// holding a target count plus the set of users that have accepted it.
// Updates are upserts (the record is created on first touch), the count is
// last-writer-wins, and a user's accept is monotonic — once true it is
// never unset by this workflow.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-messenger-backend/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AcceptationRepo defines the repository contract required by
// AcceptationService.
type AcceptationRepo interface {
	// UpsertAcceptation creates-or-updates the record and marks the vote.
	UpsertAcceptation(ctx context.Context, db *gorm.DB, id string, count int, userID string) (*domain.Acceptation, error)

	// GetAcceptation fetches a record by id.
	GetAcceptation(ctx context.Context, db *gorm.DB, id string) (*domain.Acceptation, error)

	// HasAccepted reports whether the user holds a vote on the record.
	HasAccepted(ctx context.Context, db *gorm.DB, id, userID string) (bool, error)
}

// AcceptationService provides the acceptation operations consumed by the
// HTTP layer.
type AcceptationService struct {
	DB   *gorm.DB
	Repo AcceptationRepo
}

// NewAcceptationService constructs an AcceptationService.
func NewAcceptationService(db *gorm.DB, r AcceptationRepo) *AcceptationService {
	return &AcceptationService{DB: db, Repo: r}
}

// Update upserts the record: created with the given count when absent,
// count overwritten unconditionally otherwise, and userID marked accepted.
func (s *AcceptationService) Update(ctx context.Context, id string, count int, userID string) (*domain.Acceptation, error) {
	tr := otel.Tracer("services/AcceptationService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(
			attribute.String("acceptation.id", id),
			attribute.Int("acceptation.count", count),
		),
	)
	defer span.End()

	if id == "" {
		return nil, ErrEmptyAcceptationID
	}
	if count < 0 {
		return nil, ErrInvalidCount
	}
	if userID == "" {
		return nil, ErrEmptyUser
	}
	return s.Repo.UpsertAcceptation(ctx, s.DB, id, count, userID)
}

// Get returns the record's current count, or ErrAcceptationNotFound.
func (s *AcceptationService) Get(ctx context.Context, id string) (*domain.Acceptation, error) {
	tr := otel.Tracer("services/AcceptationService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("acceptation.id", id)),
	)
	defer span.End()

	rec, err := s.Repo.GetAcceptation(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAcceptationNotFound
		}
		return nil, err
	}
	return rec, nil
}

// UserAccepted reports whether userID accepted the record. A missing record
// is ErrAcceptationNotFound; a present record with no vote for the user is
// simply false.
func (s *AcceptationService) UserAccepted(ctx context.Context, id, userID string) (bool, error) {
	tr := otel.Tracer("services/AcceptationService")
	ctx, span := tr.Start(ctx, "UserAccepted",
		trace.WithAttributes(
			attribute.String("acceptation.id", id),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if _, err := s.Repo.GetAcceptation(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrAcceptationNotFound
		}
		return false, err
	}
	return s.Repo.HasAccepted(ctx, s.DB, id, userID)
}
