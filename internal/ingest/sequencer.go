package ingest

import (
	"context"
	"fmt"
	"sync"
)

// Position of a log on its chain; ordered by block, then log index
type Position struct {
	Block    uint64
	LogIndex uint32
}

func (p Position) After(o Position) bool {
	if p.Block != o.Block {
		return p.Block > o.Block
	}
	return p.LogIndex > o.LogIndex
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Block, p.LogIndex)
}

type CheckpointStore interface {
	// ok=false when the chain has no checkpoint yet
	Load(ctx context.Context, chainID uint32) (block uint64, logIndex uint32, ok bool, err error)
	Save(ctx context.Context, chainID uint32, block uint64, logIndex uint32) error
}

// Sequencer is a per-chain high-water mark of applied positions. Anything at or below the
// mark has already been applied and is a replay. The mark of a chain is read from the
// checkpoint store the first time the chain is seen.
type Sequencer struct {
	mu     sync.Mutex
	store  CheckpointStore // optional
	marks  map[uint32]Position
	loaded map[uint32]bool
}

func NewSequencer(store CheckpointStore) *Sequencer {
	return &Sequencer{
		store:  store,
		marks:  make(map[uint32]Position),
		loaded: make(map[uint32]bool),
	}
}

// Admit reports whether pos is past the mark of the chain
func (s *Sequencer) Admit(ctx context.Context, chainID uint32, pos Position) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restore(ctx, chainID); err != nil {
		return false, err
	}

	mark, ok := s.marks[chainID]
	if !ok {
		return true, nil
	}
	return pos.After(mark), nil
}

// Advance moves the mark forward and persists it; never moves it back
func (s *Sequencer) Advance(ctx context.Context, chainID uint32, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mark, ok := s.marks[chainID]; ok && !pos.After(mark) {
		return nil
	}
	s.marks[chainID] = pos

	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, chainID, pos.Block, pos.LogIndex); err != nil {
		return fmt.Errorf("save checkpoint chain=%d pos=%s: %w", chainID, pos, err)
	}
	return nil
}

// Mark returns the current high-water mark of the chain
func (s *Sequencer) Mark(chainID uint32) (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.marks[chainID]
	return p, ok
}

func (s *Sequencer) restore(ctx context.Context, chainID uint32) error {
	if s.loaded[chainID] || s.store == nil {
		return nil
	}

	block, logIndex, ok, err := s.store.Load(ctx, chainID)
	if err != nil {
		return fmt.Errorf("load checkpoint chain=%d: %w", chainID, err)
	}
	if ok {
		s.marks[chainID] = Position{Block: block, LogIndex: logIndex}
	}
	s.loaded[chainID] = true

	return nil
}
