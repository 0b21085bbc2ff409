package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-auth/pkg/identity"
)

func TestDeleteByEmail(t *testing.T) {
	ctx := context.Background()
	repo := identity.NewInMemoryRepository()
	now := time.Now().UTC()
	rec := &identity.Identity{
		ID:          uuid.New(),
		DisplayName: "Ada Lovelace",
		Email:       "ada@example.com",
		AuthMethod:  identity.AuthMethodPassword,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.Create(ctx, rec))

	require.NoError(t, deleteByEmail(ctx, repo, "ada@example.com"))

	_, err := repo.FindByID(ctx, rec.ID)
	assert.ErrorIs(t, err, identity.ErrNotFound)
	assert.ErrorIs(t, deleteByEmail(ctx, repo, "ada@example.com"), identity.ErrNotFound)
}
