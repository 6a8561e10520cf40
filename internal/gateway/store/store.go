package store

import (
	"context"
	"errors"

	"github.com/datakwip/mcp-gateway/internal/gateway/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Registrations() Registrations

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Registrations interface {
	// CreateRegistration inserts a new registration (id is provided by the
	// app via ULID).
	CreateRegistration(ctx context.Context, c domain.RegisteredClient) error

	// GetRegistrationByClientID returns a registration by its OAuth
	// client_id.
	GetRegistrationByClientID(ctx context.Context, clientID string) (domain.RegisteredClient, error)

	// ListRegistrations returns all registrations ordered by creation date
	// (newest first).
	ListRegistrations(ctx context.Context) ([]domain.RegisteredClient, error)

	// CountRegistrations returns the number of stored registrations.
	CountRegistrations(ctx context.Context) (int64, error)
}
