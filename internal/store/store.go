// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/codejitsu/codejitsu/internal/domain"
)

// Repository defines the interface for persisting user and draft data.
type Repository interface {
	// GetUser retrieves a user by their user ID. Returns (nil, nil) when
	// the user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// SaveDraft creates or updates a per-question code draft.
	SaveDraft(ctx context.Context, draft *domain.Draft) error

	// GetDraft retrieves a user's draft for a question. Returns (nil, nil)
	// when no draft exists.
	GetDraft(ctx context.Context, userID string, questionID int) (*domain.Draft, error)

	// CleanupStaleDrafts removes drafts untouched for longer than ttl.
	CleanupStaleDrafts(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
