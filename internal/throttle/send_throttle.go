package throttle

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

const keyPrefix = "otp:send:"

// slotStore is the slice of the Redis client the throttle needs.
type slotStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SendThrottle limits OTP dispatches to one per phone per cooldown window.
// State lives in Redis; the process keeps none.
type SendThrottle struct {
	client   slotStore
	cooldown time.Duration
}

// NewSendThrottle returns nil when client is nil or cooldown is not positive;
// a nil throttle allows every send.
func NewSendThrottle(client *redis.Client, cooldown time.Duration) *SendThrottle {
	if client == nil || cooldown <= 0 {
		return nil
	}
	return &SendThrottle{client: client, cooldown: cooldown}
}

// Allow claims the cooldown slot for phone. It returns false when a send
// already happened inside the window.
func (t *SendThrottle) Allow(ctx context.Context, phone string) (bool, error) {
	if t == nil {
		return true, nil
	}
	return t.client.SetNX(ctx, Key(phone), 1, t.cooldown).Result()
}

// Release frees the cooldown slot for phone so that a send whose dispatch
// failed can be retried at once.
func (t *SendThrottle) Release(ctx context.Context, phone string) error {
	if t == nil {
		return nil
	}
	return t.client.Del(ctx, Key(phone)).Err()
}

// Key fingerprints phone so raw numbers never reach Redis.
func Key(phone string) string {
	sum := blake2b.Sum256([]byte(phone))
	return keyPrefix + hex.EncodeToString(sum[:16])
}
