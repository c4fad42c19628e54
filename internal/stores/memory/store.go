// Package memory is an in-process entity store for dev runs and tests.
package memory

import (
	"context"
	"sync"

	"passindexer/internal/domain"
	"passindexer/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Rows are stored by value so callers never share memory with the store
type table[T any] struct {
	rows map[string]T
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[string]T, 1024)}
}

func (t table[T]) load(id string) (*T, error) {
	v, ok := t.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (t table[T]) save(id string, v *T) {
	t.rows[id] = *v
}

type Store struct {
	mu sync.RWMutex

	accounts      table[domain.Account]
	holdings      table[domain.Holding]
	protocols     table[domain.Protocol]
	trades        table[domain.Trade]
	tips          table[domain.Tip]
	accountDaily  table[domain.AccountDaily]
	protocolDaily table[domain.ProtocolDaily]
}

func New() *Store {
	return &Store{
		accounts:      newTable[domain.Account](),
		holdings:      newTable[domain.Holding](),
		protocols:     newTable[domain.Protocol](),
		trades:        newTable[domain.Trade](),
		tips:          newTable[domain.Tip](),
		accountDaily:  newTable[domain.AccountDaily](),
		protocolDaily: newTable[domain.ProtocolDaily](),
	}
}

func (s *Store) LoadAccount(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts.load(id)
}

func (s *Store) SaveAccount(_ context.Context, a *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts.save(a.ID, a)
	return nil
}

func (s *Store) LoadHolding(_ context.Context, id string) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holdings.load(id)
}

func (s *Store) SaveHolding(_ context.Context, h *domain.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdings.save(h.ID, h)
	return nil
}

func (s *Store) LoadProtocol(_ context.Context, id string) (*domain.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocols.load(id)
}

func (s *Store) SaveProtocol(_ context.Context, p *domain.Protocol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocols.save(p.ID, p)
	return nil
}

func (s *Store) LoadTrade(_ context.Context, id string) (*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trades.load(id)
}

func (s *Store) SaveTrade(_ context.Context, t *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades.save(t.ID, t)
	return nil
}

func (s *Store) LoadTip(_ context.Context, id string) (*domain.Tip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tips.load(id)
}

func (s *Store) SaveTip(_ context.Context, t *domain.Tip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tips.save(t.ID, t)
	return nil
}

func (s *Store) LoadAccountDaily(_ context.Context, id string) (*domain.AccountDaily, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountDaily.load(id)
}

func (s *Store) SaveAccountDaily(_ context.Context, d *domain.AccountDaily) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountDaily.save(d.ID, d)
	return nil
}

func (s *Store) LoadProtocolDaily(_ context.Context, id string) (*domain.ProtocolDaily, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.protocolDaily.load(id)
}

func (s *Store) SaveProtocolDaily(_ context.Context, d *domain.ProtocolDaily) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocolDaily.save(d.ID, d)
	return nil
}

func (s *Store) Health(_ context.Context) error {
	return nil
}
