package clickhouse

import (
	"context"
	"errors"

	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/domain"
	"passindexer/internal/repository"
)

type Enqueuer interface {
	Enqueue(row Row) error
	Health(ctx context.Context) error
}

var _ repository.Store = (*Mirror)(nil)

// Mirror decorates an entity store: facts and daily rollups saved to it are also
// queued for ClickHouse. Only the inner save decides success.
type Mirror struct {
	repository.Store
	log    logger.Logger
	writer Enqueuer
}

func NewMirror(log logger.Logger, inner repository.Store, writer Enqueuer) (*Mirror, error) {
	if inner == nil {
		return nil, errors.New("entity store is required to the clickhouse mirror")
	}
	if writer == nil {
		return nil, errors.New("writer is required to the clickhouse mirror")
	}
	return &Mirror{Store: inner, log: log, writer: writer}, nil
}

func (m *Mirror) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if err := m.Store.SaveTrade(ctx, t); err != nil {
		return err
	}
	c := *t
	m.enqueue(TradeRow{&c})
	return nil
}

func (m *Mirror) SaveTip(ctx context.Context, t *domain.Tip) error {
	if err := m.Store.SaveTip(ctx, t); err != nil {
		return err
	}
	c := *t
	m.enqueue(TipRow{&c})
	return nil
}

func (m *Mirror) SaveAccountDaily(ctx context.Context, d *domain.AccountDaily) error {
	if err := m.Store.SaveAccountDaily(ctx, d); err != nil {
		return err
	}
	c := *d
	m.enqueue(AccountDailyRow{&c})
	return nil
}

func (m *Mirror) SaveProtocolDaily(ctx context.Context, d *domain.ProtocolDaily) error {
	if err := m.Store.SaveProtocolDaily(ctx, d); err != nil {
		return err
	}
	c := *d
	m.enqueue(ProtocolDailyRow{&c})
	return nil
}

func (m *Mirror) Health(ctx context.Context) error {
	if err := m.Store.Health(ctx); err != nil {
		return err
	}
	return m.writer.Health(ctx)
}

func (m *Mirror) enqueue(row Row) {
	if err := m.writer.Enqueue(row); err != nil {
		m.log.Errorf("Failed to enqueue %s row for clickhouse: %v", row.Table(), err)
	}
}
