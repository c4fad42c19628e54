package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/curve"
	"passindexer/internal/domain"
	"passindexer/internal/repository"
)

// TradeAggregator folds pass trades into accounts, holdings, protocol totals and daily rollups
type TradeAggregator struct {
	log    logger.Logger
	repo   *repository.Repository
	pricer curve.Pricer
}

func NewTradeAggregator(log logger.Logger, repo *repository.Repository, pricer curve.Pricer) (*TradeAggregator, error) {
	if repo == nil {
		return nil, errors.New("repository is required to the trade aggregator")
	}
	return &TradeAggregator{log: log, repo: repo, pricer: pricer}, nil
}

// HandleTrade applies one trade. The write order below is observable by readers of the store
// and must not change. A failed call leaves earlier writes in place.
func (t *TradeAggregator) HandleTrade(ctx context.Context, ev *domain.TradeEvent) (*Outcome, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil trade", domain.ErrInvalidEvent)
	}

	trader, err := t.repo.Account(ctx, ev.Trader)
	if err != nil {
		return nil, err
	}
	subject := trader
	if ev.Streamer != ev.Trader {
		if subject, err = t.repo.Account(ctx, ev.Streamer); err != nil {
			return nil, err
		}
	}
	holding, err := t.repo.Holding(ctx, trader.ID, subject.ID)
	if err != nil {
		return nil, err
	}
	protocol, err := t.repo.Protocol(ctx)
	if err != nil {
		return nil, err
	}

	if err = applyPosition(ev, holding, subject); err != nil {
		return nil, fmt.Errorf("trade %s: %w", ev.EventID(), err)
	}

	subject.AccountRevenue = subject.AccountRevenue.Add(ev.StreamerEthAmount)
	protocol.AccountRevenue = protocol.AccountRevenue.Add(ev.StreamerEthAmount)
	protocol.ProtocolRevenue = protocol.ProtocolRevenue.Add(ev.ProtocolEthAmount)
	protocol.TradeVolume = protocol.TradeVolume.Add(tradeVolume(&ev.TradeParams))
	protocol.TotalTrades = protocol.TotalTrades.Add(domain.One)

	ts := ev.BlockTimestamp
	protocol.Timestamp = ts
	holding.Timestamp = ts
	subject.Timestamp = ts

	store := t.repo.Store()
	if err = store.SaveProtocol(ctx, protocol); err != nil {
		return nil, fmt.Errorf("save protocol: %w", err)
	}
	if err = store.SaveHolding(ctx, holding); err != nil {
		return nil, fmt.Errorf("save holding %s: %w", holding.ID, err)
	}
	if err = store.SaveAccount(ctx, subject); err != nil {
		return nil, fmt.Errorf("save subject %s: %w", subject.ID, err)
	}

	trade := newTrade(ev)
	if err = store.SaveTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("save trade %s: %w", trade.ID, err)
	}

	trader.TradesCount = trader.TradesCount.Add(domain.One)
	trader.Timestamp = ts
	if err = store.SaveAccount(ctx, trader); err != nil {
		return nil, fmt.Errorf("save trader %s: %w", trader.ID, err)
	}

	day := domain.DayIndex(ts)
	accountDaily, err := t.repo.AccountDaily(ctx, subject.ID, day)
	if err != nil {
		return nil, err
	}
	protocolDaily, err := t.repo.ProtocolDaily(ctx, day)
	if err != nil {
		return nil, err
	}
	protocolDaily.Snapshot(protocol)

	accountDaily.Timestamp = ts
	if ev.IsBuy {
		accountDaily.DayBuyVolume = accountDaily.DayBuyVolume.Add(ev.EthAmount)
		accountDaily.DayPriceChange = t.pricer.Price(subject.KeySupply.Add(ev.PassAmount), domain.One).
			Sub(t.pricer.Price(subject.KeySupply, domain.One))
	} else {
		accountDaily.DaySellVolume = accountDaily.DaySellVolume.Add(ev.EthAmount)
		accountDaily.DayPriceChange = t.pricer.Price(subject.KeySupply, domain.One).
			Sub(t.pricer.Price(subject.KeySupply.Sub(ev.PassAmount), domain.One))
	}

	protocolDaily.Timestamp = ts
	protocolDaily.DayProtocolRevenue = protocolDaily.DayProtocolRevenue.Add(ev.ProtocolEthAmount)
	protocolDaily.DayAccountRevenue = protocolDaily.DayAccountRevenue.Add(ev.StreamerEthAmount)
	protocolDaily.DayTradeVolume = protocolDaily.DayTradeVolume.Add(tradeVolume(&ev.TradeParams))
	protocolDaily.DayTrades = protocolDaily.DayTrades.Add(domain.One)
	if ev.IsBuy {
		protocolDaily.DayBuyVolume = protocolDaily.DayBuyVolume.Add(ev.EthAmount)
	} else {
		protocolDaily.DaySellVolume = protocolDaily.DaySellVolume.Add(ev.EthAmount)
	}

	if err = store.SaveProtocolDaily(ctx, protocolDaily); err != nil {
		return nil, fmt.Errorf("save protocol daily %s: %w", protocolDaily.ID, err)
	}
	if err = store.SaveAccountDaily(ctx, accountDaily); err != nil {
		return nil, fmt.Errorf("save account daily %s: %w", accountDaily.ID, err)
	}

	t.log.Debugf("Trade applied id=%s subject=%s buy=%t passes=%s supply=%s",
		trade.ID, subject.ID, ev.IsBuy, ev.PassAmount.String(), subject.KeySupply.String())

	accounts := []*domain.Account{trader}
	if subject != trader {
		accounts = append(accounts, subject)
	}

	return &Outcome{
		EventID:       ev.EventID(),
		Type:          domain.EventTrade,
		BlockNumber:   ev.BlockNumber,
		Protocol:      protocol,
		Accounts:      accounts,
		Holding:       holding,
		Trade:         trade,
		AccountDaily:  accountDaily,
		ProtocolDaily: protocolDaily,
	}, nil
}

// applyPosition moves the holder's keys and the subject's supply. holdersCount changes only
// on an exact 0 -> positive or positive -> 0 move of this holding.
func applyPosition(ev *domain.TradeEvent, holding *domain.Holding, subject *domain.Account) error {
	if ev.IsBuy {
		if holding.KeysOwned.IsZero() && ev.PassAmount.IsPositive() {
			subject.HoldersCount = subject.HoldersCount.Add(domain.One)
		}
		holding.KeysOwned = holding.KeysOwned.Add(ev.PassAmount)
		subject.KeySupply = subject.KeySupply.Add(ev.PassAmount)
		return nil
	}

	owned, err := domain.Sub(holding.KeysOwned, ev.PassAmount)
	if err != nil {
		return fmt.Errorf("keysOwned of %s: %w", holding.ID, err)
	}
	if owned.IsZero() {
		if subject.HoldersCount, err = domain.Sub(subject.HoldersCount, domain.One); err != nil {
			return fmt.Errorf("holdersCount of %s: %w", subject.ID, err)
		}
	}
	supply, err := domain.Sub(subject.KeySupply, ev.PassAmount)
	if err != nil {
		return fmt.Errorf("keySupply of %s: %w", subject.ID, err)
	}

	holding.KeysOwned = owned
	subject.KeySupply = supply
	return nil
}

// tradeVolume is eth + protocol fee + subject fee
func tradeVolume(p *domain.TradeParams) decimal.Decimal {
	return p.EthAmount.Add(p.ProtocolEthAmount).Add(p.StreamerEthAmount)
}

func newTrade(ev *domain.TradeEvent) *domain.Trade {
	return &domain.Trade{
		ID:                domain.FactID(ev.TxHash, ev.LogIndex),
		Trader:            ev.Trader,
		Subject:           ev.Streamer,
		Referrer:          ev.Referrer,
		ReferralEthAmount: ev.ReferralEthAmount,
		IsBuy:             ev.IsBuy,
		PassAmount:        ev.PassAmount,
		EthAmount:         ev.EthAmount,
		ProtocolEthAmount: ev.ProtocolEthAmount,
		SubjectEthAmount:  ev.StreamerEthAmount,
		Supply:            ev.Supply,
		BlockNumber:       ev.BlockNumber,
		BlockTimestamp:    ev.BlockTimestamp,
		TransactionHash:   ev.TxHash,
	}
}
