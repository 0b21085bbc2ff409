package externalprovider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tendant/simple-auth/pkg/utils"
)

// ErrStateNotFound is returned when a state is unknown, expired or already used
var ErrStateNotFound = errors.New("oauth2 state not found")

// StateStore keeps pending OAuth2 states. Consume is single use: a state
// can be consumed at most once, even by concurrent callbacks.
type StateStore interface {
	Save(ctx context.Context, state *OAuth2State, ttl time.Duration) error
	Consume(ctx context.Context, stateValue string) (*OAuth2State, error)
}

// InMemoryStateStore implements StateStore for a single process
type InMemoryStateStore struct {
	states map[string]OAuth2State
	clock  utils.Clock
	mutex  sync.Mutex
}

func NewInMemoryStateStore(clock utils.Clock) *InMemoryStateStore {
	if clock == nil {
		clock = utils.RealClock{}
	}
	return &InMemoryStateStore{
		states: make(map[string]OAuth2State),
		clock:  clock,
	}
}

func (r *InMemoryStateStore) Save(ctx context.Context, state *OAuth2State, ttl time.Duration) error {
	if state == nil || state.State == "" {
		return errors.New("state value is required")
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Abandoned flows are never consumed; sweep them here so the map stays
	// bounded by the number of live states.
	now := r.clock.Now()
	r.pruneExpired(now.Unix())

	stored := *state
	stored.ExpiresAt = now.Add(ttl).Unix()
	r.states[state.State] = stored
	return nil
}

func (r *InMemoryStateStore) Consume(ctx context.Context, stateValue string) (*OAuth2State, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	state, ok := r.states[stateValue]
	if !ok {
		return nil, ErrStateNotFound
	}
	delete(r.states, stateValue)

	if r.clock.Now().Unix() >= state.ExpiresAt {
		return nil, ErrStateNotFound
	}
	return &state, nil
}

// CleanupExpiredStates drops states nobody came back for
func (r *InMemoryStateStore) CleanupExpiredStates() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.pruneExpired(r.clock.Now().Unix())
}

// pruneExpired must be called with the mutex held
func (r *InMemoryStateStore) pruneExpired(now int64) int {
	removed := 0
	for key, state := range r.states {
		if now >= state.ExpiresAt {
			delete(r.states, key)
			removed++
		}
	}
	return removed
}
