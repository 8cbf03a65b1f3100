package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/saumyadesai17/maayaro-sub001/internal/domain"
)

const keyPrefix = "cart:"

// CartStore implements repository.CartStore using Redis. The cart API owns
// writes; the order engine only reads lines at checkout and clears the cart
// after payment capture.
type CartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartStore creates a new Redis-backed cart store.
func NewCartStore(client *redis.Client, ttl time.Duration) *CartStore {
	return &CartStore{
		client: client,
		ttl:    ttl,
	}
}

// GetLines retrieves the cart lines for a user. A missing cart yields an
// empty slice.
func (s *CartStore) GetLines(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	key := keyPrefix + userID.String()

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []domain.CartLine{}, nil
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart lines: %w", err)
	}

	return lines, nil
}

// Clear removes a user's cart.
func (s *CartStore) Clear(ctx context.Context, userID uuid.UUID) error {
	key := keyPrefix + userID.String()

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}

	return nil
}
