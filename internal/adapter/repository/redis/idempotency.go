package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/balanceledger/internal/usecase"
)

const inFlightMarker = "processing"

// IdempotencyStore implements usecase.IdempotencyStore using Redis.
type IdempotencyStore struct {
	client redis.Cmdable
	prefix string
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(client redis.Cmdable) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		prefix: "idempotency:",
	}
}

// Reserve claims key with an in-flight marker.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, *usecase.StoredResponse, error) {
	fullKey := s.prefix + key

	set, err := s.client.SetNX(ctx, fullKey, inFlightMarker, ttl).Result()
	if err != nil {
		return false, nil, err
	}
	if set {
		return true, nil, nil
	}

	raw, err := s.client.Get(ctx, fullKey).Bytes()
	if errors.Is(err, redis.Nil) {
		// Released or expired between SETNX and GET; the caller may retry.
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	if string(raw) == inFlightMarker {
		return false, nil, nil
	}

	var stored usecase.StoredResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		return false, nil, fmt.Errorf("decode stored response: %w", err)
	}
	return false, &stored, nil
}

// Complete stores the final response for key.
func (s *IdempotencyStore) Complete(ctx context.Context, key string, response usecase.StoredResponse, ttl time.Duration) error {
	raw, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, raw, ttl).Err()
}

// Release deletes key if it still holds the in-flight marker.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, s.client, []string{s.prefix + key}, inFlightMarker).Err()
}
