package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no identity matches a lookup.
	ErrNotFound = errors.New("identity not found")
	// ErrDuplicate is returned when a write would break email or external id uniqueness.
	ErrDuplicate = errors.New("identity already exists")
)

// Repository stores identity records. Emails are stored normalized, so
// FindByEmail callers pass NormalizeEmail output. Implementations return
// copies; mutating a returned record has no effect until Update.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	FindByExternalID(ctx context.Context, externalID string) (*Identity, error)
	Create(ctx context.Context, identity *Identity) error
	// Update replaces the stored record with the same ID.
	Update(ctx context.Context, identity *Identity) error
	Delete(ctx context.Context, id uuid.UUID) error
}
