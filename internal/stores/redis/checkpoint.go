package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

// CheckpointStore keeps the last applied (block, logIndex) per chain in one hash:
// field = chain id, value = "block:logIndex".
type CheckpointStore struct {
	rdb *Client
	key string
}

func NewCheckpointStore(rdb *Client, key string) (*CheckpointStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required to the checkpoint store")
	}
	if key == "" {
		return nil, errors.New("key is required to the checkpoint store")
	}
	return &CheckpointStore{rdb: rdb, key: key}, nil
}

// Load returns ok=false when the chain has no checkpoint yet
func (c *CheckpointStore) Load(ctx context.Context, chainID uint32) (block uint64, logIndex uint32, ok bool, err error) {
	v, err := c.rdb.HGet(ctx, c.key, strconv.FormatUint(uint64(chainID), 10)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("redis hget checkpoint: %w", err)
	}

	var li uint64
	if _, err = fmt.Sscanf(v, "%d:%d", &block, &li); err != nil {
		return 0, 0, false, fmt.Errorf("malformed checkpoint %q: %w", v, err)
	}

	return block, uint32(li), true, nil
}

func (c *CheckpointStore) Save(ctx context.Context, chainID uint32, block uint64, logIndex uint32) error {
	field := strconv.FormatUint(uint64(chainID), 10)
	val := fmt.Sprintf("%d:%d", block, logIndex)
	if err := c.rdb.HSet(ctx, c.key, field, val).Err(); err != nil {
		return fmt.Errorf("redis hset checkpoint: %w", err)
	}
	return nil
}
