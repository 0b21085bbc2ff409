package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// InMemoryRepository keeps identities in process memory.
type InMemoryRepository struct {
	mu         sync.RWMutex
	identities map[uuid.UUID]*Identity
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		identities: make(map[uuid.UUID]*Identity),
	}
}

func (r *InMemoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i, ok := r.identities[id]; ok {
		return i.Clone(), nil
	}
	return nil, ErrNotFound
}

func (r *InMemoryRepository) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return findIn(r.identities, func(i *Identity) bool { return i.Email == email })
}

func (r *InMemoryRepository) FindByExternalID(ctx context.Context, externalID string) (*Identity, error) {
	if externalID == "" {
		return nil, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	return findIn(r.identities, func(i *Identity) bool { return i.ExternalID == externalID })
}

func (r *InMemoryRepository) Create(ctx context.Context, identity *Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.identities[identity.ID]; ok {
		return ErrDuplicate
	}
	if conflicts(r.identities, identity) {
		return ErrDuplicate
	}
	r.identities[identity.ID] = identity.Clone()
	return nil
}

func (r *InMemoryRepository) Update(ctx context.Context, identity *Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.identities[identity.ID]; !ok {
		return ErrNotFound
	}
	if conflicts(r.identities, identity) {
		return ErrDuplicate
	}
	r.identities[identity.ID] = identity.Clone()
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.identities[id]; !ok {
		return ErrNotFound
	}
	delete(r.identities, id)
	return nil
}

func findIn(m map[uuid.UUID]*Identity, match func(*Identity) bool) (*Identity, error) {
	for _, i := range m {
		if match(i) {
			return i.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// conflicts reports whether another record already holds candidate's email
// or external id.
func conflicts(m map[uuid.UUID]*Identity, candidate *Identity) bool {
	for id, i := range m {
		if id == candidate.ID {
			continue
		}
		if i.Email == candidate.Email {
			return true
		}
		if candidate.ExternalID != "" && i.ExternalID == candidate.ExternalID {
			return true
		}
	}
	return false
}
