package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passindexer/internal/domain"
	"passindexer/internal/repository"
)

func TestNewGiftAggregator_NilRepo(t *testing.T) {
	g, err := NewGiftAggregator(&NoopLogger{}, nil)
	assert.Nil(t, g)
	assert.EqualError(t, err, "repository is required to the gift aggregator")
}

func TestHandleMint_SplitsRevenue(t *testing.T) {
	f := newFixture(t, nil)

	out := f.process(t, f.mintEnv(alice, bob, "100", "10", dayStart))

	assert.Equal(t, "90", f.account(t, bob).AccountRevenue.String())
	assert.Equal(t, "100", f.account(t, alice).AccountGifts.String())
	assert.True(t, f.account(t, bob).AccountGifts.IsZero())

	p := f.protocol(t)
	assert.Equal(t, "10", p.ProtocolRevenue.String())
	assert.Equal(t, "2", p.UserCount.String(), "user count survives the early protocol save")
	assert.True(t, p.TotalTrades.IsZero())
	assert.True(t, p.AccountRevenue.IsZero())

	tip, err := f.store.LoadTip(f.ctx, "0xbeef01000000")
	require.NoError(t, err)
	assert.Equal(t, alice, tip.Gifter)
	assert.Equal(t, bob, tip.Streamer)
	assert.Equal(t, "7", tip.GiftID.String())
	assert.Equal(t, "100", tip.TotalPrice.String())

	assert.Equal(t, tip.ID, out.Tip.ID)
	assert.True(t, out.Protocol.UserCount.Equal(p.UserCount))
}

func TestHandleMint_NoDailyRollups(t *testing.T) {
	f := newFixture(t, nil)

	f.process(t, f.mintEnv(alice, bob, "100", "10", dayStart))

	_, err := f.store.LoadProtocolDaily(f.ctx, domain.DailyID(protocolID, day0))
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.store.LoadAccountDaily(f.ctx, domain.DailyID(bob, day0))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHandleMint_Accumulates(t *testing.T) {
	f := newFixture(t, nil)

	f.process(t, f.mintEnv(alice, bob, "100", "10", dayStart))
	f.process(t, f.mintEnv(carol, bob, "50", "5", dayStart+1))

	assert.Equal(t, "135", f.account(t, bob).AccountRevenue.String())
	assert.Equal(t, "15", f.protocol(t).ProtocolRevenue.String())
	assert.Equal(t, "3", f.protocol(t).UserCount.String())
}

func TestHandleMint_FeeAboveTotal(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.ProcessEvent(f.ctx, f.mintEnv(alice, bob, "5", "10", dayStart))

	require.ErrorIs(t, err, domain.ErrArithmeticUnderflow)
	_, err = f.store.LoadTip(f.ctx, "0xbeef01000000")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHandleMint_FeeAboveTotalWithPriorRevenue(t *testing.T) {
	f := newFixture(t, nil)

	f.process(t, f.mintEnv(alice, bob, "100", "10", dayStart))
	require.Equal(t, "90", f.account(t, bob).AccountRevenue.String())

	_, err := f.svc.ProcessEvent(f.ctx, f.mintEnv(alice, bob, "5", "10", dayStart+1))

	require.ErrorIs(t, err, domain.ErrArithmeticUnderflow)
	assert.Equal(t, "90", f.account(t, bob).AccountRevenue.String())
	assert.Equal(t, "100", f.account(t, alice).AccountGifts.String())
	_, err = f.store.LoadTip(f.ctx, "0xbeef02000000")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHandleMint_SelfGift(t *testing.T) {
	f := newFixture(t, nil)

	out := f.process(t, f.mintEnv(alice, alice, "100", "10", dayStart))

	a := f.account(t, alice)
	assert.Equal(t, "90", a.AccountRevenue.String())
	assert.Equal(t, "100", a.AccountGifts.String())
	assert.Equal(t, "1", f.protocol(t).UserCount.String())
	assert.Len(t, out.Accounts, 1)
}
