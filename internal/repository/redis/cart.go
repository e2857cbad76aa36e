package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/madukaneranga/Kixora-sub002/internal/domain"
	apperrors "github.com/madukaneranga/Kixora-sub002/pkg/errors"
)

const keyPrefix = "cart:"

// CartMirrorRepository implements repository.CartMirrorRepository using
// Redis. Each signed-in user has at most one mirror document, keyed by
// user ID; anonymous carts never touch this store.
type CartMirrorRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartMirrorRepository creates a new Redis-backed cart mirror repository.
func NewCartMirrorRepository(client *redis.Client, ttl time.Duration) *CartMirrorRepository {
	return &CartMirrorRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a user's mirrored cart from Redis.
func (r *CartMirrorRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	key := keyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}

	return &cart, nil
}

// Replace overwrites the user's mirror with the full cart document and
// refreshes the TTL. The mirror is last-write-wins; reconciliation order
// is enforced upstream by the engine's per-session serialization.
func (r *CartMirrorRepository) Replace(ctx context.Context, userID string, cart *domain.Cart) error {
	key := keyPrefix + userID

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}

	return nil
}

// Delete removes a user's mirrored cart.
func (r *CartMirrorRepository) Delete(ctx context.Context, userID string) error {
	key := keyPrefix + userID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}

	return nil
}
