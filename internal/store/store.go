// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
)

// HistoryCap is the maximum number of messages persisted per user; older
// messages are discarded on save.
const HistoryCap = 50

// Repository defines the interface for persisting users, long-term
// memory facts, and conversation history.
type Repository interface {
	// GetUser retrieves a user by ID. Returns nil without error when the
	// user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.UserSession, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.UserSession) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// DeleteUser removes a user together with their facts and history.
	DeleteUser(ctx context.Context, userID string) error

	// GetStaleGuests retrieves guest users idle past the TTL.
	GetStaleGuests(ctx context.Context, ttl time.Duration) ([]*domain.UserSession, error)

	// GetFacts retrieves all memory facts for a user in insertion order.
	GetFacts(ctx context.Context, userID string) ([]domain.MemoryEntry, error)

	// SaveFact persists one fact. Returns false when the exact content
	// already exists for that user (deduplication).
	SaveFact(ctx context.Context, userID, content string) (bool, error)

	// ClearFacts removes every fact for a user.
	ClearFacts(ctx context.Context, userID string) error

	// GetHistory retrieves the persisted conversation log in order.
	GetHistory(ctx context.Context, userID string) ([]domain.Message, error)

	// SaveHistory replaces the persisted conversation log, keeping at
	// most the last HistoryCap messages.
	SaveHistory(ctx context.Context, userID string, messages []domain.Message) error

	// ClearHistory removes the persisted conversation log.
	ClearHistory(ctx context.Context, userID string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
