package redis

import (
	"context"
	"errors"
	"fmt"

	"passindexer/internal/config"
	rdb "passindexer/internal/stores/redis"
)

/*
Bloom is a RedisBloom prefilter in front of the SETNX claim:
	- "definitely not seen" -> go on to SETNX;
	- "probably seen" -> report a duplicate without touching the claim keys.
Only applied events are added, so a released claim never leaves a bloom entry behind.
*/

type Bloom struct {
	rdb      *rdb.Client
	Key      string
	Capacity int64
	ErrRate  float64
}

func NewBloom(cfg *config.BloomConfig, rdb *rdb.Client) (*Bloom, error) {
	if cfg == nil {
		return nil, errors.New("bloom config is required to the bloom")
	}
	if rdb == nil {
		return nil, errors.New("redis client is required to the bloom")
	}

	key := cfg.Key
	if key == "" {
		key = "dedupe:bf:events"
	}

	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 1_000_000
	}

	errRate := cfg.ErrRate
	if errRate <= 0 {
		errRate = 0.001
	}

	return &Bloom{
		rdb:      rdb,
		Key:      key,
		Capacity: capacity,
		ErrRate:  errRate,
	}, nil
}

// Ensure creates the filter if it does not exist. Repeated calls are safe
func (b *Bloom) Ensure(ctx context.Context) error {
	exists, err := b.rdb.Exists(ctx, b.Key).Result()
	if err != nil {
		return fmt.Errorf("failed to check bloom key, error: %w", err)
	}
	if exists > 0 {
		return nil
	}

	// unknown command 'BF.RESERVE' when the module is not loaded
	if err = b.rdb.Do(ctx, "BF.RESERVE", b.Key, b.ErrRate, b.Capacity).Err(); err != nil {
		return fmt.Errorf("BF.RESERVE failed: %w", err)
	}

	return nil
}

// Add returns true when the item was definitely not in the filter before
func (b *Bloom) Add(ctx context.Context, item string) (bool, error) {
	res := b.rdb.Do(ctx, "BF.ADD", b.Key, item)
	if err := res.Err(); err != nil {
		return false, fmt.Errorf("failed to add item to bloom: %w", err)
	}

	v, err := res.Int()
	return v == 1, err
}

// Exists returns true when the item is "probably" in the filter
func (b *Bloom) Exists(ctx context.Context, item string) (bool, error) {
	res := b.rdb.Do(ctx, "BF.EXISTS", b.Key, item)
	if err := res.Err(); err != nil {
		return false, fmt.Errorf("failed to check item in bloom: %w", err)
	}

	v, err := res.Int()
	return v == 1, err
}
