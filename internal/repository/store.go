// Package repository defines the entity store the aggregators consume and the
// get-or-create policy layered on top of it.
package repository

import (
	"context"
	"errors"

	"passindexer/internal/domain"
)

// ErrNotFound is returned by every Load* when the key is absent
var ErrNotFound = errors.New("entity not found")

// Store is a key/document store with overwrite-on-save semantics and no transactions.
// Loads must return a copy: mutating a loaded entity never changes the stored one until Save.
type Store interface {
	LoadAccount(ctx context.Context, id string) (*domain.Account, error)
	SaveAccount(ctx context.Context, a *domain.Account) error

	LoadHolding(ctx context.Context, id string) (*domain.Holding, error)
	SaveHolding(ctx context.Context, h *domain.Holding) error

	LoadProtocol(ctx context.Context, id string) (*domain.Protocol, error)
	SaveProtocol(ctx context.Context, p *domain.Protocol) error

	LoadTrade(ctx context.Context, id string) (*domain.Trade, error)
	SaveTrade(ctx context.Context, t *domain.Trade) error

	LoadTip(ctx context.Context, id string) (*domain.Tip, error)
	SaveTip(ctx context.Context, t *domain.Tip) error

	LoadAccountDaily(ctx context.Context, id string) (*domain.AccountDaily, error)
	SaveAccountDaily(ctx context.Context, d *domain.AccountDaily) error

	LoadProtocolDaily(ctx context.Context, id string) (*domain.ProtocolDaily, error)
	SaveProtocolDaily(ctx context.Context, d *domain.ProtocolDaily) error

	Health(ctx context.Context) error
}
