package repository

import (
	"context"
	"errors"
	"fmt"

	"passindexer/internal/domain"
)

// Repository wraps a Store with the get-or-create policy:
//   - Account, Holding, Protocol are saved as soon as they are created, so a later load in
//     the same unit of work sees them; the caller saves them again after mutating.
//   - AccountDaily, ProtocolDaily are built in memory on a miss and saved once by the caller.
type Repository struct {
	store      Store
	protocolID string
}

func New(store Store, protocolID string) (*Repository, error) {
	if store == nil {
		return nil, errors.New("store is required to the repository")
	}
	if protocolID == "" {
		return nil, errors.New("protocol id is required to the repository")
	}
	return &Repository{store: store, protocolID: protocolID}, nil
}

func (r *Repository) Store() Store {
	return r.store
}

func (r *Repository) ProtocolID() string {
	return r.protocolID
}

func (r *Repository) Protocol(ctx context.Context) (*domain.Protocol, error) {
	p, err := getOrCreate(ctx, r.store.LoadProtocol, r.store.SaveProtocol, r.protocolID,
		func() *domain.Protocol { return domain.NewProtocol(r.protocolID) }, true)
	if err != nil {
		return nil, fmt.Errorf("protocol %s: %w", r.protocolID, err)
	}
	return p, nil
}

// Account creates the account on first reference and counts it in Protocol.userCount
func (r *Repository) Account(ctx context.Context, address string) (*domain.Account, error) {
	a, err := r.store.LoadAccount(ctx, address)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load account %s: %w", address, err)
	}

	protocol, err := r.Protocol(ctx)
	if err != nil {
		return nil, err
	}
	protocol.UserCount = protocol.UserCount.Add(domain.One)

	a = domain.NewAccount(address)
	if err = r.store.SaveAccount(ctx, a); err != nil {
		return nil, fmt.Errorf("save new account %s: %w", address, err)
	}
	if err = r.store.SaveProtocol(ctx, protocol); err != nil {
		return nil, fmt.Errorf("save protocol user count: %w", err)
	}

	return a, nil
}

func (r *Repository) Holding(ctx context.Context, holder, subject string) (*domain.Holding, error) {
	id := domain.HoldingID(holder, subject)
	h, err := getOrCreate(ctx, r.store.LoadHolding, r.store.SaveHolding, id,
		func() *domain.Holding { return domain.NewHolding(holder, subject) }, true)
	if err != nil {
		return nil, fmt.Errorf("holding %s: %w", id, err)
	}
	return h, nil
}

// AccountDaily is not persisted here
func (r *Repository) AccountDaily(ctx context.Context, accountID string, day uint64) (*domain.AccountDaily, error) {
	id := domain.DailyID(accountID, day)
	d, err := getOrCreate(ctx, r.store.LoadAccountDaily, r.store.SaveAccountDaily, id,
		func() *domain.AccountDaily { return domain.NewAccountDaily(accountID, day) }, false)
	if err != nil {
		return nil, fmt.Errorf("account daily %s: %w", id, err)
	}
	return d, nil
}

// ProtocolDaily is not persisted here
func (r *Repository) ProtocolDaily(ctx context.Context, day uint64) (*domain.ProtocolDaily, error) {
	id := domain.DailyID(r.protocolID, day)
	d, err := getOrCreate(ctx, r.store.LoadProtocolDaily, r.store.SaveProtocolDaily, id,
		func() *domain.ProtocolDaily { return domain.NewProtocolDaily(r.protocolID, day) }, false)
	if err != nil {
		return nil, fmt.Errorf("protocol daily %s: %w", id, err)
	}
	return d, nil
}

func getOrCreate[T any](
	ctx context.Context,
	load func(context.Context, string) (*T, error),
	save func(context.Context, *T) error,
	id string,
	fresh func() *T,
	persist bool,
) (*T, error) {
	v, err := load(ctx, id)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("load: %w", err)
	}

	v = fresh()
	if persist {
		if err = save(ctx, v); err != nil {
			return nil, fmt.Errorf("save new: %w", err)
		}
	}

	return v, nil
}
