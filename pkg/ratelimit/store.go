package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists rate limit state. Load returns nil, nil when nothing has
// been stored yet.
type Store interface {
	Load(ctx context.Context) (*RateLimitState, error)
	Save(ctx context.Context, state *RateLimitState) error
}

// Redis key suffixes for rate limit state storage.
const (
	redisKeyLimit          = "limit"
	redisKeyRemaining      = "remaining"
	redisKeyResetTimestamp = "reset_timestamp"
	redisKeyLastUpdate     = "last_update"
)

// RedisStore shares rate limit state between processes using the same API
// key.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore creates a store whose keys are scoped by scope, typically a
// credential fingerprint.
func NewRedisStore(redisClient *redis.Client, scope string) *RedisStore {
	return &RedisStore{
		redis:  redisClient,
		prefix: "recurly:rate_limit:" + scope + ":",
	}
}

// Key returns the full Redis key for a state field.
func (s *RedisStore) Key(field string) string {
	return s.prefix + field
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (*RateLimitState, error) {
	values, err := s.redis.MGet(ctx,
		s.Key(redisKeyLimit),
		s.Key(redisKeyRemaining),
		s.Key(redisKeyResetTimestamp),
		s.Key(redisKeyLastUpdate),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("load rate limit state: %w", err)
	}

	if values[1] == nil {
		return nil, nil
	}

	limit, err := redisInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("parse limit: %w", err)
	}
	remaining, err := redisInt(values[1])
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	reset, err := redisInt(values[2])
	if err != nil {
		return nil, fmt.Errorf("parse reset timestamp: %w", err)
	}

	var lastUpdate time.Time
	if raw, ok := values[3].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &RateLimitState{
		Limit:      int(limit),
		Remaining:  int(remaining),
		LastUpdate: lastUpdate,
	}
	if reset > 0 {
		state.ResetAt = time.Unix(reset, 0)
	}
	state.UpdateHealth()
	return state, nil
}

// Save implements Store. All fields are written in one pipeline and expire
// shortly after the window resets.
func (s *RedisStore) Save(ctx context.Context, state *RateLimitState) error {
	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	var ttl time.Duration
	if !state.ResetAt.IsZero() {
		ttl = time.Until(state.ResetAt) + time.Minute
	}

	var resetUnix int64
	if !state.ResetAt.IsZero() {
		resetUnix = state.ResetAt.Unix()
	}

	pipe := s.redis.Pipeline()
	pipe.Set(ctx, s.Key(redisKeyLimit), state.Limit, ttl)
	pipe.Set(ctx, s.Key(redisKeyRemaining), state.Remaining, ttl)
	pipe.Set(ctx, s.Key(redisKeyResetTimestamp), resetUnix, ttl)
	pipe.Set(ctx, s.Key(redisKeyLastUpdate), lastUpdateJSON, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

func redisInt(v any) (int64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(val, 10, 64)
	default:
		return 0, errors.New("unexpected redis value type")
	}
}

// MemoryStore keeps rate limit state in process.
type MemoryStore struct {
	mu    sync.Mutex
	state *RateLimitState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements Store.
func (s *MemoryStore) Load(context.Context) (*RateLimitState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, nil
	}
	state := *s.state
	return &state, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, state *RateLimitState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	s.state = &copied
	return nil
}
