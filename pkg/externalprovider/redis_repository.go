package externalprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const stateKeyPrefix = "oauth2state"

// RedisStateStore implements StateStore on Redis so any instance behind a
// load balancer can complete a flow another instance started. Expiry is
// left to the key TTL.
type RedisStateStore struct {
	redis  *redis.Client
	prefix string
}

func NewRedisStateStore(redisClient *redis.Client) *RedisStateStore {
	return &RedisStateStore{
		redis:  redisClient,
		prefix: stateKeyPrefix,
	}
}

func (s *RedisStateStore) key(stateValue string) string {
	return s.prefix + ":" + stateValue
}

func (s *RedisStateStore) Save(ctx context.Context, state *OAuth2State, ttl time.Duration) error {
	if state == nil || state.State == "" {
		return errors.New("state value is required")
	}
	stored := *state
	stored.ExpiresAt = time.Now().Add(ttl).Unix()

	encoded, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode oauth2 state: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(state.State), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("save oauth2 state: %w", err)
	}
	return nil
}

// Consume reads and deletes the state in one GETDEL so two callbacks racing
// on the same state cannot both succeed.
func (s *RedisStateStore) Consume(ctx context.Context, stateValue string) (*OAuth2State, error) {
	data, err := s.redis.GetDel(ctx, s.key(stateValue)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume oauth2 state: %w", err)
	}

	var state OAuth2State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode oauth2 state: %w", err)
	}
	return &state, nil
}
