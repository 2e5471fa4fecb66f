package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const viewKeyPrefix = "product_view"

// ViewGuard remembers idempotency keys of recorded product views
type ViewGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewViewGuard creates a ViewGuard that forgets keys after ttl
func NewViewGuard(client *redis.Client, ttl time.Duration) *ViewGuard {
	return &ViewGuard{client: client, ttl: ttl}
}

// FirstView reports whether key has not been seen for the product within the ttl
func (g *ViewGuard) FirstView(ctx context.Context, productID uuid.UUID, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, viewKey(productID, key), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record view key: %w", err)
	}
	return ok, nil
}

// Forget drops a key so the next view with it is counted again
func (g *ViewGuard) Forget(ctx context.Context, productID uuid.UUID, key string) error {
	if err := g.client.Del(ctx, viewKey(productID, key)).Err(); err != nil {
		return fmt.Errorf("failed to release view key: %w", err)
	}
	return nil
}

func viewKey(productID uuid.UUID, key string) string {
	return fmt.Sprintf("%s:%s:%s", viewKeyPrefix, productID, key)
}
