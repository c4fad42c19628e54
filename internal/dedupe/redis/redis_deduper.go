package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/config"
	"passindexer/internal/dedupe"
	rdb "passindexer/internal/stores/redis"
)

var _ dedupe.Deduper = (*RedisDedupe)(nil)

type RedisDedupe struct {
	log    logger.Logger
	rdb    *rdb.Client
	ttl    time.Duration
	prefix string
	bloom  *Bloom // optional
}

// Cluster dedupe on Redis SETNX + TTL
// prefix example "passindexer:dedupe:"
func NewRedisDeduper(log logger.Logger, cfg *config.DedupeConfig, rdb *rdb.Client, bloom *Bloom) (*RedisDedupe, error) {
	if cfg == nil {
		return nil, errors.New("config is required to the redis deduper")
	}
	if rdb == nil {
		return nil, errors.New("redis client is required to the redis deduper")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "dedupe:"
	}

	return &RedisDedupe{
		log:    log,
		rdb:    rdb,
		ttl:    cfg.TTL,
		prefix: prefix,
		bloom:  bloom,
	}, nil
}

func (d *RedisDedupe) Seen(ctx context.Context, id string) (bool, error) {
	if d.bloom != nil {
		// a bloom error falls through to SETNX
		if exists, err := d.bloom.Exists(ctx, id); err == nil && exists {
			return true, nil
		}
	}

	ok, err := d.rdb.SetNX(ctx, d.prefix+id, 1, d.ttl).Result()
	if err != nil {
		d.log.Errorf("Redis SetNX error=%v", err)
		return false, fmt.Errorf("redis SetNX error=%w", err)
	}

	// ok=true -> new claim; ok=false -> already claimed
	return !ok, nil
}

// Commit records an applied id in the bloom; a bloom failure is logged only
func (d *RedisDedupe) Commit(ctx context.Context, id string) error {
	if d.bloom == nil {
		return nil
	}
	if _, err := d.bloom.Add(ctx, id); err != nil {
		d.log.Errorf("Failed to add bloom id %s, err=%v", id, err)
	}
	return nil
}

func (d *RedisDedupe) Release(ctx context.Context, id string) error {
	if err := d.rdb.Del(ctx, d.prefix+id).Err(); err != nil {
		return fmt.Errorf("redis Del error=%w", err)
	}
	return nil
}

func (d *RedisDedupe) Health(ctx context.Context) error {
	return d.rdb.Health(ctx)
}
