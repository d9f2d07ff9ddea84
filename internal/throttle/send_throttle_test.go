package throttle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	keys map[string]time.Duration
	err  error
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	var n int64
	for _, key := range keys {
		if _, ok := f.keys[key]; ok {
			delete(f.keys, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestSendThrottle_Allow(t *testing.T) {
	store := &fakeRedis{keys: map[string]time.Duration{}}
	th := &SendThrottle{client: store, cooldown: 30 * time.Second}
	ctx := context.Background()

	ok, err := th.Allow(ctx, "+919876543210")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = th.Allow(ctx, "+919876543210")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = th.Allow(ctx, "+15551234567")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 30*time.Second, store.keys[Key("+919876543210")])
}

func TestSendThrottle_ReleaseReopensSlot(t *testing.T) {
	store := &fakeRedis{keys: map[string]time.Duration{}}
	th := &SendThrottle{client: store, cooldown: 30 * time.Second}
	ctx := context.Background()

	ok, err := th.Allow(ctx, "+919876543210")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, th.Release(ctx, "+919876543210"))
	assert.NotContains(t, store.keys, Key("+919876543210"))

	ok, err = th.Allow(ctx, "+919876543210")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, th.Release(ctx, "+15551234567"))
}

func TestSendThrottle_PropagatesRedisError(t *testing.T) {
	th := &SendThrottle{client: &fakeRedis{err: errors.New("connection refused")}, cooldown: time.Second}
	ok, err := th.Allow(context.Background(), "+919876543210")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, th.Release(context.Background(), "+919876543210"))
}

func TestSendThrottle_NilAllows(t *testing.T) {
	assert.Nil(t, NewSendThrottle(nil, time.Minute))

	var th *SendThrottle
	ok, err := th.Allow(context.Background(), "+919876543210")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, th.Release(context.Background(), "+919876543210"))
}

func TestKey_HidesPhone(t *testing.T) {
	key := Key("+919876543210")
	assert.True(t, strings.HasPrefix(key, "otp:send:"))
	assert.NotContains(t, key, "9876543210")
	assert.Len(t, key, len("otp:send:")+32)
	assert.Equal(t, key, Key("+919876543210"))
	assert.NotEqual(t, key, Key("+919876543211"))
}
