package service

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/domain"
	"passindexer/internal/repository"
)

// GiftAggregator folds gift mints into streamer revenue, gifter spend and protocol revenue.
// Gifts have no daily rollups.
type GiftAggregator struct {
	log  logger.Logger
	repo *repository.Repository
}

func NewGiftAggregator(log logger.Logger, repo *repository.Repository) (*GiftAggregator, error) {
	if repo == nil {
		return nil, errors.New("repository is required to the gift aggregator")
	}
	return &GiftAggregator{log: log, repo: repo}, nil
}

func (g *GiftAggregator) HandleMint(ctx context.Context, ev *domain.MintEvent) (*Outcome, error) {
	if ev == nil {
		return nil, fmt.Errorf("%w: nil mint", domain.ErrInvalidEvent)
	}

	store := g.repo.Store()

	protocol, err := g.repo.Protocol(ctx)
	if err != nil {
		return nil, err
	}
	protocol.ProtocolRevenue = protocol.ProtocolRevenue.Add(ev.ProtocolFee)
	if err = store.SaveProtocol(ctx, protocol); err != nil {
		return nil, fmt.Errorf("save protocol: %w", err)
	}

	// account creation below reloads and saves the protocol row itself
	gifter, err := g.repo.Account(ctx, ev.Gifter)
	if err != nil {
		return nil, err
	}
	streamer := gifter
	if ev.Streamer != ev.Gifter {
		if streamer, err = g.repo.Account(ctx, ev.Streamer); err != nil {
			return nil, err
		}
	}

	net, err := domain.Sub(ev.TotalPrice, ev.ProtocolFee)
	if err != nil {
		return nil, fmt.Errorf("mint %s streamer revenue: %w", ev.EventID(), err)
	}
	streamer.AccountRevenue = streamer.AccountRevenue.Add(net)
	gifter.AccountGifts = gifter.AccountGifts.Add(ev.TotalPrice)

	tip := &domain.Tip{
		ID:          domain.FactID(ev.TxHash, ev.LogIndex),
		Gifter:      ev.Gifter,
		Streamer:    ev.Streamer,
		Amount:      ev.Amount,
		GiftID:      ev.GiftID,
		ProtocolFee: ev.ProtocolFee,
		TotalPrice:  ev.TotalPrice,
	}
	if err = store.SaveTip(ctx, tip); err != nil {
		return nil, fmt.Errorf("save tip %s: %w", tip.ID, err)
	}
	if err = store.SaveAccount(ctx, gifter); err != nil {
		return nil, fmt.Errorf("save gifter %s: %w", gifter.ID, err)
	}
	if streamer != gifter {
		if err = store.SaveAccount(ctx, streamer); err != nil {
			return nil, fmt.Errorf("save streamer %s: %w", streamer.ID, err)
		}
	}

	if protocol, err = g.repo.Protocol(ctx); err != nil {
		return nil, err
	}

	g.log.Debugf("Mint applied id=%s streamer=%s total=%s fee=%s",
		tip.ID, streamer.ID, ev.TotalPrice.String(), ev.ProtocolFee.String())

	accounts := []*domain.Account{gifter}
	if streamer != gifter {
		accounts = append(accounts, streamer)
	}

	return &Outcome{
		EventID:     ev.EventID(),
		Type:        domain.EventMint,
		BlockNumber: ev.BlockNumber,
		Protocol:    protocol,
		Accounts:    accounts,
		Tip:         tip,
	}, nil
}
