package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Idempotency maps client supplied idempotency keys to the order they created.
type Idempotency struct {
	Redis redis.Cmdable
}

// Lookup returns the order id stored for key, ok=false when the key is unknown.
func (i *Idempotency) Lookup(ctx context.Context, key string) (string, bool, error) {
	id, err := i.Redis.Get(ctx, fmt.Sprintf(KeyIdemOrderPlace, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (i *Idempotency) Remember(ctx context.Context, key, orderID string) error {
	return i.Redis.Set(ctx, fmt.Sprintf(KeyIdemOrderPlace, key), orderID, TTLIdempotency).Err()
}

// Claim marks an event as processed by service; it reports false when it was already claimed.
func Claim(ctx context.Context, rdb redis.Cmdable, service, eventID string) (bool, error) {
	return rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, eventID), "1", TTLDedup).Result()
}
