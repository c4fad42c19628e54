package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	loggerCfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/config"
)

func createTestLogger() logger.Logger {
	return logger.New(loggerCfg.LoggerCfg{Level: "error", Format: "json"})
}

func newDeduper(t *testing.T, prefix string, ttl time.Duration, withBloom bool) (*RedisDedupe, func(string) bool) {
	t.Helper()

	mr, client := setupTestRedis(t)

	var bloom *Bloom
	if withBloom {
		var err error
		bloom, err = NewBloom(createTestBloomConfig("test:bloom", 1000, 0.01), client)
		require.NoError(t, err)
	}

	d, err := NewRedisDeduper(createTestLogger(), &config.DedupeConfig{Prefix: prefix, TTL: ttl}, client, bloom)
	require.NoError(t, err)

	return d, mr.Exists
}

// ========== Constructor Tests ==========

func TestNewRedisDeduper_Validation(t *testing.T) {
	_, client := setupTestRedis(t)

	_, err := NewRedisDeduper(createTestLogger(), nil, client, nil)
	assert.EqualError(t, err, "config is required to the redis deduper")

	_, err = NewRedisDeduper(createTestLogger(), &config.DedupeConfig{}, nil, nil)
	assert.EqualError(t, err, "redis client is required to the redis deduper")
}

func TestNewRedisDeduper_DefaultPrefix(t *testing.T) {
	_, client := setupTestRedis(t)

	d, err := NewRedisDeduper(createTestLogger(), &config.DedupeConfig{TTL: time.Hour}, client, nil)
	require.NoError(t, err)
	assert.Equal(t, "dedupe:", d.prefix)
	assert.Equal(t, time.Hour, d.ttl)
}

// ========== Seen Tests ==========

func TestRedisDedupe_Seen_FirstThenDuplicate(t *testing.T) {
	d, exists := newDeduper(t, "test:dedupe:", time.Hour, false)
	ctx := context.Background()

	seen, err := d.Seen(ctx, "8453:0xabc:1")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.True(t, exists("test:dedupe:8453:0xabc:1"))

	seen, err = d.Seen(ctx, "8453:0xabc:1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestRedisDedupe_Seen_SetsTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	d, err := NewRedisDeduper(createTestLogger(), &config.DedupeConfig{Prefix: "p:", TTL: 2 * time.Hour}, client, nil)
	require.NoError(t, err)

	_, err = d.Seen(context.Background(), "id")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, mr.TTL("p:id"))

	mr.FastForward(2*time.Hour + time.Second)

	seen, err := d.Seen(context.Background(), "id")
	require.NoError(t, err)
	assert.False(t, seen, "expired claim is claimable again")
}

// BF.EXISTS errors on miniredis; the claim must still go through SETNX
func TestRedisDedupe_Seen_BloomErrorFallsThrough(t *testing.T) {
	d, _ := newDeduper(t, "test:dedupe:", time.Hour, true)
	ctx := context.Background()

	seen, err := d.Seen(ctx, "8453:0xabc:2")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = d.Seen(ctx, "8453:0xabc:2")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestRedisDedupe_Seen_RedisFailure(t *testing.T) {
	mr, client := setupTestRedis(t)
	d, err := NewRedisDeduper(createTestLogger(), &config.DedupeConfig{TTL: time.Hour}, client, nil)
	require.NoError(t, err)
	mr.Close()

	seen, err := d.Seen(context.Background(), "id")
	assert.Error(t, err)
	assert.False(t, seen)
	assert.Error(t, d.Health(context.Background()))
}

func TestRedisDedupe_Seen_ConcurrentSameID(t *testing.T) {
	d, _ := newDeduper(t, "test:dedupe:", time.Hour, false)
	ctx := context.Background()

	const workers = 32
	var first atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			seen, err := d.Seen(ctx, "same")
			assert.NoError(t, err)
			if !seen {
				first.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), first.Load())
}

// ========== Commit / Release Tests ==========

func TestRedisDedupe_ReleaseDropsClaim(t *testing.T) {
	d, exists := newDeduper(t, "test:dedupe:", time.Hour, false)
	ctx := context.Background()

	_, err := d.Seen(ctx, "8453:0xabc:3")
	require.NoError(t, err)

	require.NoError(t, d.Release(ctx, "8453:0xabc:3"))
	assert.False(t, exists("test:dedupe:8453:0xabc:3"))

	seen, err := d.Seen(ctx, "8453:0xabc:3")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisDedupe_CommitIgnoresBloomFailure(t *testing.T) {
	d, _ := newDeduper(t, "test:dedupe:", time.Hour, true)

	assert.NoError(t, d.Commit(context.Background(), "8453:0xabc:4"))
}

func TestRedisDedupe_CommitWithoutBloom(t *testing.T) {
	d, _ := newDeduper(t, "test:dedupe:", time.Hour, false)

	assert.NoError(t, d.Commit(context.Background(), "x"))
	assert.NoError(t, d.Health(context.Background()))
}
