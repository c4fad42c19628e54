package ingest

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/domain"
	"passindexer/internal/metrics"
	"passindexer/internal/service"
)

// ErrDecode marks a feed message that is not a valid envelope
var ErrDecode = errors.New("decode event")

type EventProcessor interface {
	ProcessEvent(ctx context.Context, env *domain.Envelope) (*service.Outcome, error)
}

// Processor applies envelopes in feed order: replay guard → aggregator → checkpoint.
// Any error must stop the feed.
type Processor struct {
	log     logger.Logger
	seq     *Sequencer
	handler EventProcessor
	metrics *metrics.Metrics // optional
}

func NewProcessor(log logger.Logger, seq *Sequencer, handler EventProcessor, m *metrics.Metrics) (*Processor, error) {
	if seq == nil {
		return nil, errors.New("sequencer is required to the processor")
	}
	if handler == nil {
		return nil, errors.New("event handler is required to the processor")
	}
	return &Processor{log: log, seq: seq, handler: handler, metrics: m}, nil
}

func (p *Processor) Handle(ctx context.Context, env *domain.Envelope) error {
	if env == nil {
		return fmt.Errorf("%w: nil envelope", domain.ErrInvalidEvent)
	}

	pos := Position{Block: env.BlockNumber, LogIndex: env.LogIndex}

	admit, err := p.seq.Admit(ctx, env.ChainID, pos)
	if err != nil {
		return err
	}
	if !admit {
		p.log.Debugf("Replay skipped: event=%s pos=%s", env.EventID(), pos)
		p.metrics.Skipped("replay")
		return nil
	}

	if _, err = p.handler.ProcessEvent(ctx, env); err != nil {
		return fmt.Errorf("event %s at %s: %w", env.EventID(), pos, err)
	}

	return p.seq.Advance(ctx, env.ChainID, pos)
}
