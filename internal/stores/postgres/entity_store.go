package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"passindexer/internal/domain"
	"passindexer/internal/repository"
)

var _ repository.Store = (*EntityStore)(nil)

// EntityStore keeps one table per entity kind; saves are upserts on id
type EntityStore struct {
	db *gorm.DB
}

func NewEntityStore(db *gorm.DB) (*EntityStore, error) {
	if db == nil {
		return nil, errors.New("gorm db is required to the entity store")
	}
	return &EntityStore{db: db}, nil
}

func first[R any](ctx context.Context, db *gorm.DB, id string) (*R, error) {
	var row R
	err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func upsert(ctx context.Context, db *gorm.DB, row any) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
}

func (s *EntityStore) LoadAccount(ctx context.Context, id string) (*domain.Account, error) {
	r, err := first[accountRow](ctx, s.db, id)
	if err != nil {
		return nil, wrap("load account", id, err)
	}
	return r.toDomain(), nil
}

func (s *EntityStore) SaveAccount(ctx context.Context, a *domain.Account) error {
	return wrap("save account", a.ID, upsert(ctx, s.db, toAccountRow(a)))
}

func (s *EntityStore) LoadHolding(ctx context.Context, id string) (*domain.Holding, error) {
	r, err := first[holdingRow](ctx, s.db, id)
	if err != nil {
		return nil, wrap("load holding", id, err)
	}
	return r.toDomain(), nil
}

func (s *EntityStore) SaveHolding(ctx context.Context, h *domain.Holding) error {
	return wrap("save holding", h.ID, upsert(ctx, s.db, toHoldingRow(h)))
}

func (s *EntityStore) LoadProtocol(ctx context.Context, id string) (*domain.Protocol, error) {
	r, err := first[protocolRow](ctx, s.db, id)
	if err != nil {
		return nil, wrap("load protocol", id, err)
	}
	return r.toDomain(), nil
}

func (s *EntityStore) SaveProtocol(ctx context.Context, p *domain.Protocol) error {
	return wrap("save protocol", p.ID, upsert(ctx, s.db, toProtocolRow(p)))
}

func (s *EntityStore) LoadTrade(ctx context.Context, id string) (*domain.Trade, error) {
	r, err := first[tradeRow](ctx, s.db, id)
	if err != nil {
		return nil, wrap("load trade", id, err)
	}
	return r.toDomain(), nil
}

func (s *EntityStore) SaveTrade(ctx context.Context, t *domain.Trade) error {
	return wrap("save trade", t.ID, upsert(ctx, s.db, toTradeRow(t)))
}

func (s *EntityStore) LoadTip(ctx context.Context, id string) (*domain.Tip, error) {
	r, err := first[tipRow](ctx, s.db, id)
	if err != nil {
		return nil, wrap("load tip", id, err)
	}
	return r.toDomain(), nil
}

func (s *EntityStore) SaveTip(ctx context.Context, t *domain.Tip) error {
	return wrap("save tip", t.ID, upsert(ctx, s.db, toTipRow(t)))
}

func (s *EntityStore) LoadAccountDaily(ctx context.Context, id string) (*domain.AccountDaily, error) {
	r, err := first[accountDailyRow](ctx, s.db, id)
	if err != nil {
		return nil, wrap("load account daily", id, err)
	}
	return r.toDomain(), nil
}

func (s *EntityStore) SaveAccountDaily(ctx context.Context, d *domain.AccountDaily) error {
	return wrap("save account daily", d.ID, upsert(ctx, s.db, toAccountDailyRow(d)))
}

func (s *EntityStore) LoadProtocolDaily(ctx context.Context, id string) (*domain.ProtocolDaily, error) {
	r, err := first[protocolDailyRow](ctx, s.db, id)
	if err != nil {
		return nil, wrap("load protocol daily", id, err)
	}
	return r.toDomain(), nil
}

func (s *EntityStore) SaveProtocolDaily(ctx context.Context, d *domain.ProtocolDaily) error {
	return wrap("save protocol daily", d.ID, upsert(ctx, s.db, toProtocolDailyRow(d)))
}

func (s *EntityStore) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ErrNotFound passes through unwrapped so callers can match it
func wrap(op, id string, err error) error {
	if err == nil || errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return fmt.Errorf("postgres %s %s: %w", op, id, err)
}
