package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"passindexer/internal/domain"
	"passindexer/internal/repository"
)

var _ repository.Store = (*EntityStore)(nil)

const (
	kindAccount       = "account"
	kindHolding       = "holding"
	kindProtocol      = "protocol"
	kindTrade         = "trade"
	kindTip           = "tip"
	kindAccountDaily  = "account_daily"
	kindProtocolDaily = "protocol_daily"
)

// EntityStore keeps every entity as one JSON document under prefix + kind + ":" + id.
// Entities have no TTL.
type EntityStore struct {
	rdb    *Client
	prefix string
}

func NewEntityStore(rdb *Client, prefix string) (*EntityStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required to the entity store")
	}
	return &EntityStore{rdb: rdb, prefix: prefix}, nil
}

func (s *EntityStore) key(kind, id string) string {
	return s.prefix + kind + ":" + id
}

func load[T any](ctx context.Context, s *EntityStore, kind, id string) (*T, error) {
	b, err := s.rdb.Get(ctx, s.key(kind, id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s %s: %w", kind, id, err)
	}

	var v T
	if err = json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return &v, nil
}

func save(ctx context.Context, s *EntityStore, kind, id string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", kind, id, err)
	}
	if err = s.rdb.Set(ctx, s.key(kind, id), b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s %s: %w", kind, id, err)
	}
	return nil
}

func (s *EntityStore) LoadAccount(ctx context.Context, id string) (*domain.Account, error) {
	return load[domain.Account](ctx, s, kindAccount, id)
}

func (s *EntityStore) SaveAccount(ctx context.Context, a *domain.Account) error {
	return save(ctx, s, kindAccount, a.ID, a)
}

func (s *EntityStore) LoadHolding(ctx context.Context, id string) (*domain.Holding, error) {
	return load[domain.Holding](ctx, s, kindHolding, id)
}

func (s *EntityStore) SaveHolding(ctx context.Context, h *domain.Holding) error {
	return save(ctx, s, kindHolding, h.ID, h)
}

func (s *EntityStore) LoadProtocol(ctx context.Context, id string) (*domain.Protocol, error) {
	return load[domain.Protocol](ctx, s, kindProtocol, id)
}

func (s *EntityStore) SaveProtocol(ctx context.Context, p *domain.Protocol) error {
	return save(ctx, s, kindProtocol, p.ID, p)
}

func (s *EntityStore) LoadTrade(ctx context.Context, id string) (*domain.Trade, error) {
	return load[domain.Trade](ctx, s, kindTrade, id)
}

func (s *EntityStore) SaveTrade(ctx context.Context, t *domain.Trade) error {
	return save(ctx, s, kindTrade, t.ID, t)
}

func (s *EntityStore) LoadTip(ctx context.Context, id string) (*domain.Tip, error) {
	return load[domain.Tip](ctx, s, kindTip, id)
}

func (s *EntityStore) SaveTip(ctx context.Context, t *domain.Tip) error {
	return save(ctx, s, kindTip, t.ID, t)
}

func (s *EntityStore) LoadAccountDaily(ctx context.Context, id string) (*domain.AccountDaily, error) {
	return load[domain.AccountDaily](ctx, s, kindAccountDaily, id)
}

func (s *EntityStore) SaveAccountDaily(ctx context.Context, d *domain.AccountDaily) error {
	return save(ctx, s, kindAccountDaily, d.ID, d)
}

func (s *EntityStore) LoadProtocolDaily(ctx context.Context, id string) (*domain.ProtocolDaily, error) {
	return load[domain.ProtocolDaily](ctx, s, kindProtocolDaily, id)
}

func (s *EntityStore) SaveProtocolDaily(ctx context.Context, d *domain.ProtocolDaily) error {
	return save(ctx, s, kindProtocolDaily, d.ID, d)
}

func (s *EntityStore) Health(ctx context.Context) error {
	return s.rdb.Health(ctx)
}
