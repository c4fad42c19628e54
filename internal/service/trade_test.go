package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passindexer/internal/curve"
	"passindexer/internal/domain"
)

var day0 = domain.DayIndex(dayStart)

func TestNewTradeAggregator_NilRepo(t *testing.T) {
	a, err := NewTradeAggregator(&NoopLogger{}, nil, curve.Default())
	assert.Nil(t, a)
	assert.EqualError(t, err, "repository is required to the trade aggregator")
}

func TestHandleTrade_FirstBuy(t *testing.T) {
	f := newFixture(t, nil)

	out := f.process(t, f.tradeEnv(tradeArgs{
		trader: alice, subject: bob, buy: true, passes: "1",
		eth: "1000", protocolFee: "50", subjectFee: "50", ts: dayStart + 60,
	}))

	subject := f.account(t, bob)
	assert.Equal(t, "1", subject.HoldersCount.String())
	assert.Equal(t, "1", subject.KeySupply.String())
	assert.Equal(t, "50", subject.AccountRevenue.String())
	assert.Equal(t, "0", subject.TradesCount.String())
	assert.Equal(t, dayStart+60, subject.Timestamp)

	trader := f.account(t, alice)
	assert.Equal(t, "1", trader.TradesCount.String())
	assert.Equal(t, dayStart+60, trader.Timestamp)

	holding, err := f.store.LoadHolding(f.ctx, domain.HoldingID(alice, bob))
	require.NoError(t, err)
	assert.Equal(t, "1", holding.KeysOwned.String())

	p := f.protocol(t)
	assert.Equal(t, "2", p.UserCount.String())
	assert.Equal(t, "50", p.ProtocolRevenue.String())
	assert.Equal(t, "50", p.AccountRevenue.String())
	assert.Equal(t, "1100", p.TradeVolume.String())
	assert.Equal(t, "1", p.TotalTrades.String())

	ad := f.accountDaily(t, bob, day0)
	assert.Equal(t, "1000", ad.DayBuyVolume.String())
	assert.Equal(t, "0", ad.DaySellVolume.String())
	// price(2,1) - price(1,1)
	assert.Equal(t, "187500000000000", ad.DayPriceChange.String())

	pd := f.protocolDaily(t, day0)
	assert.Equal(t, "1", pd.DayTrades.String())
	assert.Equal(t, "1000", pd.DayBuyVolume.String())
	assert.Equal(t, "1100", pd.DayTradeVolume.String())
	assert.Equal(t, "50", pd.DayProtocolRevenue.String())
	assert.Equal(t, "50", pd.DayAccountRevenue.String())
	assert.Equal(t, "2", pd.UserCount.String())

	tr, err := f.store.LoadTrade(f.ctx, "0xfeed01000000")
	require.NoError(t, err)
	assert.Equal(t, alice, tr.Trader)
	assert.Equal(t, bob, tr.Subject)
	assert.True(t, tr.IsBuy)
	assert.Equal(t, "50", tr.SubjectEthAmount.String())
	assert.Equal(t, "0xfeed", tr.TransactionHash)

	assert.Equal(t, "8453:0xfeed:1", out.EventID)
	assert.Len(t, out.Accounts, 2)
	assert.Equal(t, tr.ID, out.Trade.ID)
}

func TestHandleTrade_BuyFiveSellFive(t *testing.T) {
	f := newFixture(t, nil)

	buy := f.process(t, f.tradeEnv(tradeArgs{
		trader: alice, subject: bob, buy: true, passes: "5",
		eth: "5000", protocolFee: "100", subjectFee: "100", ts: dayStart + 10,
	}))
	// price(10,1) - price(5,1)
	assert.Equal(t, "4687500000000000", buy.AccountDaily.DayPriceChange.String())
	revenueAfterBuy := f.account(t, bob).AccountRevenue
	volumeAfterBuy := f.protocol(t).TradeVolume

	f.process(t, f.tradeEnv(tradeArgs{
		trader: alice, subject: bob, buy: false, passes: "5",
		eth: "4000", protocolFee: "80", subjectFee: "80", ts: dayStart + 20,
	}))

	holding, err := f.store.LoadHolding(f.ctx, domain.HoldingID(alice, bob))
	require.NoError(t, err)
	assert.True(t, holding.KeysOwned.IsZero())

	subject := f.account(t, bob)
	assert.True(t, subject.HoldersCount.IsZero())
	assert.True(t, subject.KeySupply.IsZero())
	assert.Equal(t, "180", subject.AccountRevenue.String())
	assert.True(t, subject.AccountRevenue.GreaterThan(revenueAfterBuy))

	p := f.protocol(t)
	assert.Equal(t, "9360", p.TradeVolume.String())
	assert.True(t, p.TradeVolume.GreaterThan(volumeAfterBuy))
	assert.Equal(t, "2", f.account(t, alice).TradesCount.String())

	ad := f.accountDaily(t, bob, day0)
	assert.Equal(t, "5000", ad.DayBuyVolume.String())
	assert.Equal(t, "4000", ad.DaySellVolume.String())
	// price(0,1) - price(-5,1): evaluated on the post-trade supply
	assert.Equal(t, "-1562500000000000", ad.DayPriceChange.String())

	pd := f.protocolDaily(t, day0)
	assert.Equal(t, "2", pd.DayTrades.String())
	assert.Equal(t, "5000", pd.DayBuyVolume.String())
	assert.Equal(t, "4000", pd.DaySellVolume.String())
	assert.Equal(t, "9360", pd.DayTradeVolume.String())
}

func TestHandleTrade_HoldersCountZeroCrossings(t *testing.T) {
	f := newFixture(t, nil)
	trade := func(trader string, buy bool, passes string) {
		f.process(t, f.tradeEnv(tradeArgs{
			trader: trader, subject: bob, buy: buy, passes: passes,
			eth: "1", protocolFee: "0", subjectFee: "0", ts: dayStart,
		}))
	}
	holders := func() string { return f.account(t, bob).HoldersCount.String() }

	trade(alice, true, "3")
	assert.Equal(t, "1", holders())

	trade(alice, true, "1")
	assert.Equal(t, "1", holders(), "adding to a position")

	trade(alice, false, "1")
	assert.Equal(t, "1", holders(), "partial reduction stays positive")

	trade(carol, true, "2")
	assert.Equal(t, "2", holders())

	trade(alice, false, "3")
	assert.Equal(t, "1", holders())

	trade(carol, false, "2")
	assert.Equal(t, "0", holders())
	assert.True(t, f.account(t, bob).KeySupply.IsZero())
}

func TestHandleTrade_ZeroAmountBuyIsNotAHolder(t *testing.T) {
	f := newFixture(t, nil)

	f.process(t, f.tradeEnv(tradeArgs{
		trader: alice, subject: bob, buy: true, passes: "0",
		eth: "0", protocolFee: "0", subjectFee: "0", ts: dayStart,
	}))

	assert.True(t, f.account(t, bob).HoldersCount.IsZero())
	assert.Equal(t, "1", f.protocol(t).TotalTrades.String())
}

func TestHandleTrade_SellMoreThanHeld(t *testing.T) {
	f := newFixture(t, nil)

	f.process(t, f.tradeEnv(tradeArgs{
		trader: alice, subject: bob, buy: true, passes: "1",
		eth: "1", protocolFee: "0", subjectFee: "0", ts: dayStart,
	}))

	_, err := f.svc.ProcessEvent(f.ctx, f.tradeEnv(tradeArgs{
		trader: alice, subject: bob, buy: false, passes: "2",
		eth: "1", protocolFee: "0", subjectFee: "0", ts: dayStart,
	}))
	require.ErrorIs(t, err, domain.ErrArithmeticUnderflow)

	// nothing after the failed step was written
	assert.Equal(t, "1", f.protocol(t).TotalTrades.String())
	assert.Equal(t, "1", f.account(t, bob).KeySupply.String())
}

// a zero sell from an empty position hits the exact-zero branch and underflows holdersCount
func TestHandleTrade_ZeroSellWithoutPosition(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.ProcessEvent(f.ctx, f.tradeEnv(tradeArgs{
		trader: alice, subject: bob, buy: false, passes: "0",
		eth: "0", protocolFee: "0", subjectFee: "0", ts: dayStart,
	}))

	require.ErrorIs(t, err, domain.ErrArithmeticUnderflow)
	assert.ErrorContains(t, err, "holdersCount")
}

func TestHandleTrade_DayBuckets(t *testing.T) {
	f := newFixture(t, nil)

	f.process(t, f.tradeEnv(tradeArgs{
		trader: alice, subject: bob, buy: true, passes: "2",
		eth: "100", protocolFee: "5", subjectFee: "5", ts: dayStart + 10,
	}))
	f.process(t, f.tradeEnv(tradeArgs{
		trader: carol, subject: bob, buy: true, passes: "1",
		eth: "200", protocolFee: "10", subjectFee: "10", ts: dayStart + oneDay - 1,
	}))
	f.process(t, f.tradeEnv(tradeArgs{
		trader: alice, subject: bob, buy: false, passes: "1",
		eth: "300", protocolFee: "15", subjectFee: "15", ts: dayStart + oneDay + 5,
	}))

	first := f.protocolDaily(t, day0)
	assert.Equal(t, "2", first.DayTrades.String())
	assert.Equal(t, "330", first.DayTradeVolume.String())
	assert.Equal(t, "2", first.TotalTrades.String())
	assert.Equal(t, "330", first.TotalTradeVolume.String())

	second := f.protocolDaily(t, day0+1)
	assert.Equal(t, "1", second.DayTrades.String())
	assert.Equal(t, "330", second.DayTradeVolume.String())
	assert.Equal(t, "300", second.DaySellVolume.String())
	assert.Equal(t, "3", second.TotalTrades.String())
	assert.Equal(t, "660", second.TotalTradeVolume.String())
	assert.Equal(t, "3", second.UserCount.String())

	assert.Equal(t, "300", f.accountDaily(t, bob, day0).DayBuyVolume.String())
	assert.Equal(t, "300", f.accountDaily(t, bob, day0+1).DaySellVolume.String())
}

func TestHandleTrade_SnapshotMatchesProtocol(t *testing.T) {
	f := newFixture(t, nil)

	steps := []tradeArgs{
		{trader: alice, subject: bob, buy: true, passes: "3", eth: "900", protocolFee: "45", subjectFee: "45", ts: dayStart},
		{trader: bob, subject: carol, buy: true, passes: "1", eth: "10", protocolFee: "1", subjectFee: "1", ts: dayStart + 100},
		{trader: alice, subject: bob, buy: false, passes: "1", eth: "250", protocolFee: "12", subjectFee: "12", ts: dayStart + 2*oneDay},
		{trader: carol, subject: carol, buy: true, passes: "4", eth: "70", protocolFee: "3", subjectFee: "3", ts: dayStart + 2*oneDay + 1},
	}

	var volume int64
	for _, s := range steps {
		out := f.process(t, f.tradeEnv(s))

		p := f.protocol(t)
		pd := f.protocolDaily(t, domain.DayIndex(s.ts))
		assert.True(t, pd.TotalTradeVolume.Equal(p.TradeVolume))
		assert.True(t, pd.TotalTrades.Equal(p.TotalTrades))
		assert.True(t, pd.TotalProtocolRevenue.Equal(p.ProtocolRevenue))
		assert.True(t, pd.TotalAccountRevenue.Equal(p.AccountRevenue))
		assert.True(t, pd.UserCount.Equal(p.UserCount))
		assert.True(t, out.Protocol.TradeVolume.Equal(p.TradeVolume))

		volume += amt(s.eth).Add(amt(s.protocolFee)).Add(amt(s.subjectFee)).IntPart()
		assert.Equal(t, volume, p.TradeVolume.IntPart())
	}
}

func TestHandleTrade_SelfTrade(t *testing.T) {
	f := newFixture(t, nil)

	out := f.process(t, f.tradeEnv(tradeArgs{
		trader: alice, subject: alice, buy: true, passes: "2",
		eth: "2000", protocolFee: "20", subjectFee: "20", ts: dayStart,
	}))

	a := f.account(t, alice)
	assert.Equal(t, "1", a.TradesCount.String())
	assert.Equal(t, "2", a.KeySupply.String())
	assert.Equal(t, "1", a.HoldersCount.String())
	assert.Equal(t, "20", a.AccountRevenue.String())
	assert.Equal(t, "1", f.protocol(t).UserCount.String())
	assert.Len(t, out.Accounts, 1)
}

func TestHandleTrade_AddressCaseFolds(t *testing.T) {
	f := newFixture(t, nil)

	f.process(t, f.tradeEnv(tradeArgs{
		trader: "0xAbCd000000000000000000000000000000000001", subject: bob, buy: true, passes: "1",
		eth: "1", protocolFee: "0", subjectFee: "0", ts: dayStart,
	}))
	f.process(t, f.tradeEnv(tradeArgs{
		trader: "0xabcd000000000000000000000000000000000001", subject: bob, buy: true, passes: "1",
		eth: "1", protocolFee: "0", subjectFee: "0", ts: dayStart,
	}))

	assert.Equal(t, "2", f.protocol(t).UserCount.String())
	assert.Equal(t, "1", f.account(t, bob).HoldersCount.String())
}
