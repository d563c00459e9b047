package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// HeaderIdempotencyKey names the request header carrying a client retry key.
const HeaderIdempotencyKey = "Idempotency-Key"

// ErrIdempotencyConflict indicates the key was already used for a request.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IdempotencyStore remembers request keys in Redis so a retried POST is not
// applied twice.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore constructs the store. A nil client accepts every key.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// IdempotencyRedisKey scopes key to the route it was sent to.
func IdempotencyRedisKey(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, strings.TrimSpace(key))
}

// Claim records key for scope, or returns ErrIdempotencyConflict when it was
// claimed before and has not expired.
func (s *IdempotencyStore) Claim(ctx context.Context, scope, key string) error {
	if strings.TrimSpace(key) == "" {
		return &ValidationError{Errors: []string{HeaderIdempotencyKey + " must not be blank"}}
	}
	if s == nil || s.client == nil {
		return nil
	}
	ok, err := s.client.SetNX(ctx, IdempotencyRedisKey(scope, key), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("claim idempotency key: %w", err)
	}
	if !ok {
		return ErrIdempotencyConflict
	}
	return nil
}

// Release forgets key so a failed request can be retried with it.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Del(ctx, IdempotencyRedisKey(scope, key)).Err()
}
