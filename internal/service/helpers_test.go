package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/curve"
	"passindexer/internal/dedupe"
	"passindexer/internal/domain"
	"passindexer/internal/pubsub"
	"passindexer/internal/repository"
	"passindexer/internal/stores/memory"
)

const (
	protocolID = "0x00000000000000000000000000000000000000aa"
	alice      = "0x1111111111111111111111111111111111111111"
	bob        = "0x2222222222222222222222222222222222222222"
	carol      = "0x3333333333333333333333333333333333333333"

	// 2024-01-01T00:00:00Z, day 19723
	dayStart = uint64(1704067200)
	oneDay   = uint64(domain.SecondsPerDay)
)

// NoopLogger is a logger that does nothing
type NoopLogger struct{}

func (n *NoopLogger) Debug(msg string)                          {}
func (n *NoopLogger) Debugf(format string, args ...interface{}) {}
func (n *NoopLogger) Info(msg string)                           {}
func (n *NoopLogger) Infof(format string, args ...interface{})  {}
func (n *NoopLogger) Warn(msg string)                           {}
func (n *NoopLogger) Warnf(format string, args ...interface{})  {}
func (n *NoopLogger) Error(msg string)                          {}
func (n *NoopLogger) Errorf(format string, args ...interface{}) {}
func (n *NoopLogger) Fatal(msg string)                          {}
func (n *NoopLogger) Fatalf(format string, args ...interface{}) {}
func (n *NoopLogger) Panic(msg string)                          {}
func (n *NoopLogger) Panicf(format string, args ...interface{}) {}
func (n *NoopLogger) WithField(key string, value interface{}) logger.Logger {
	return n
}
func (n *NoopLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return n
}

// MockBroadcaster records published topics
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Publish(ctx context.Context, subject string, data interface{}) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func (m *MockBroadcaster) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// flakyStore fails the next N trade saves
type flakyStore struct {
	*memory.Store
	failTrades int
}

var errStoreDown = errors.New("store down")

func (s *flakyStore) SaveTrade(ctx context.Context, t *domain.Trade) error {
	if s.failTrades > 0 {
		s.failTrades--
		return errStoreDown
	}
	return s.Store.SaveTrade(ctx, t)
}

type fixture struct {
	store *flakyStore
	repo  *repository.Repository
	svc   *AggregatorService
	ctx   context.Context
	seq   uint32
}

func newFixture(t *testing.T, broadcaster *MockBroadcaster) *fixture {
	t.Helper()

	log := &NoopLogger{}
	store := &flakyStore{Store: memory.New()}

	repo, err := repository.New(store, protocolID)
	require.NoError(t, err)

	trades, err := NewTradeAggregator(log, repo, curve.Default())
	require.NoError(t, err)
	gifts, err := NewGiftAggregator(log, repo)
	require.NoError(t, err)

	deduper := dedupe.NewInMemoryDedupe(log, time.Hour, 0)
	t.Cleanup(deduper.Close)

	var b pubsub.Broadcaster
	if broadcaster != nil {
		b = broadcaster
	}

	svc, err := NewAggregatorService(log, repo, trades, gifts, deduper, b, nil)
	require.NoError(t, err)

	return &fixture{store: store, repo: repo, svc: svc, ctx: context.Background()}
}

func amt(s string) decimal.Decimal {
	return domain.MustAmount(s)
}

type tradeArgs struct {
	trader, subject string
	buy             bool
	passes          string
	eth             string
	protocolFee     string
	subjectFee      string
	ts              uint64
}

func (f *fixture) tradeEnv(a tradeArgs) *domain.Envelope {
	f.seq++
	return &domain.Envelope{
		Type: domain.EventTrade,
		EventMeta: domain.EventMeta{
			ChainID:        8453,
			BlockNumber:    uint64(100 + f.seq),
			BlockTimestamp: a.ts,
			TxHash:         "0xfeed",
			LogIndex:       f.seq,
		},
		Trade: &domain.TradeParams{
			Trader:            a.trader,
			Streamer:          a.subject,
			Referrer:          "0x0000000000000000000000000000000000000000",
			ReferralEthAmount: domain.Zero,
			IsBuy:             a.buy,
			PassAmount:        amt(a.passes),
			EthAmount:         amt(a.eth),
			ProtocolEthAmount: amt(a.protocolFee),
			StreamerEthAmount: amt(a.subjectFee),
			Supply:            domain.Zero,
		},
	}
}

func (f *fixture) mintEnv(gifter, streamer, total, fee string, ts uint64) *domain.Envelope {
	f.seq++
	return &domain.Envelope{
		Type: domain.EventMint,
		EventMeta: domain.EventMeta{
			ChainID:        8453,
			BlockNumber:    uint64(100 + f.seq),
			BlockTimestamp: ts,
			TxHash:         "0xbeef",
			LogIndex:       f.seq,
		},
		Mint: &domain.MintParams{
			Gifter:      gifter,
			Streamer:    streamer,
			Amount:      domain.One,
			GiftID:      amt("7"),
			ProtocolFee: amt(fee),
			TotalPrice:  amt(total),
		},
	}
}

func (f *fixture) process(t *testing.T, env *domain.Envelope) *Outcome {
	t.Helper()
	out, err := f.svc.ProcessEvent(f.ctx, env)
	require.NoError(t, err)
	require.NotNil(t, out)
	return out
}

func (f *fixture) account(t *testing.T, id string) *domain.Account {
	t.Helper()
	a, err := f.store.LoadAccount(f.ctx, id)
	require.NoError(t, err)
	return a
}

func (f *fixture) protocol(t *testing.T) *domain.Protocol {
	t.Helper()
	p, err := f.store.LoadProtocol(f.ctx, protocolID)
	require.NoError(t, err)
	return p
}

func (f *fixture) protocolDaily(t *testing.T, day uint64) *domain.ProtocolDaily {
	t.Helper()
	d, err := f.store.LoadProtocolDaily(f.ctx, domain.DailyID(protocolID, day))
	require.NoError(t, err)
	return d
}

func (f *fixture) accountDaily(t *testing.T, id string, day uint64) *domain.AccountDaily {
	t.Helper()
	d, err := f.store.LoadAccountDaily(f.ctx, domain.DailyID(id, day))
	require.NoError(t, err)
	return d
}
