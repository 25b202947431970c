package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mansoorceksport/mediakart/internal/domain"
	"github.com/redis/go-redis/v9"
)

const cartStashKeyPrefix = "cart:"

// RedisCartStash implements domain.CartStash. Each priced checkout lives
// under cart:{correlationID} with a TTL; expiry is lazy, Redis simply stops
// returning the key.
type RedisCartStash struct {
	client *redis.Client
}

// NewRedisCartStash creates a new cart stash backed by Redis
func NewRedisCartStash(client *redis.Client) *RedisCartStash {
	return &RedisCartStash{client: client}
}

func (s *RedisCartStash) Put(ctx context.Context, cart *domain.StashedCart, ttl time.Duration) error {
	key := cartStashKeyPrefix + cart.CorrelationID

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal stashed cart: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to stash cart: %w", err)
	}
	return nil
}

// Claim atomically fetches and deletes the stashed cart via GETDEL, so each
// correlation id can be confirmed at most once. A missing key means the
// cart expired or was already claimed, reported as ErrStaleCart.
func (s *RedisCartStash) Claim(ctx context.Context, correlationID string) (*domain.StashedCart, error) {
	key := cartStashKeyPrefix + correlationID

	data, err := s.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrStaleCart
		}
		return nil, fmt.Errorf("failed to claim stashed cart: %w", err)
	}

	var cart domain.StashedCart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stashed cart: %w", err)
	}
	return &cart, nil
}
