package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/dedupe"
	"passindexer/internal/domain"
	"passindexer/internal/metrics"
	"passindexer/internal/pubsub"
	"passindexer/internal/repository"
)

var ErrUnknownEvent = errors.New("unknown event type")

// AggregatorService is the single entry point for decoded events:
// validate → dedupe → dispatch → broadcast. Reads for the HTTP API go through it as well.
// Not safe for concurrent ProcessEvent calls; the feed delivers one event at a time.
type AggregatorService struct {
	log         logger.Logger
	repo        *repository.Repository
	trades      *TradeAggregator
	gifts       *GiftAggregator
	deduper     dedupe.Deduper     // optional
	broadcaster pubsub.Broadcaster // optional
	metrics     *metrics.Metrics   // optional
}

func NewAggregatorService(
	log logger.Logger,
	repo *repository.Repository,
	trades *TradeAggregator,
	gifts *GiftAggregator,
	deduper dedupe.Deduper,
	broadcaster pubsub.Broadcaster,
	m *metrics.Metrics,
) (*AggregatorService, error) {
	if repo == nil {
		return nil, errors.New("repository is required to the aggregator service")
	}
	if trades == nil || gifts == nil {
		return nil, errors.New("trade and gift aggregators are required to the aggregator service")
	}

	return &AggregatorService{
		log:         log,
		repo:        repo,
		trades:      trades,
		gifts:       gifts,
		deduper:     deduper,
		broadcaster: broadcaster,
		metrics:     m,
	}, nil
}

// ProcessEvent applies one envelope. A nil outcome with a nil error means the event was a duplicate.
func (a *AggregatorService) ProcessEvent(ctx context.Context, env *domain.Envelope) (*Outcome, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", domain.ErrInvalidEvent)
	}
	if err := env.Validate(); err != nil {
		a.metrics.Failed(string(env.Type))
		return nil, err
	}

	id := env.EventID()
	if a.deduper != nil {
		isDup, err := a.deduper.Seen(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("dedupe check failed for %s: %w", id, err)
		}
		if isDup {
			a.log.Debugf("Duplicate event ignored: %s", id)
			a.metrics.Skipped("duplicate")
			return nil, nil
		}
	}

	started := time.Now()
	out, err := a.dispatch(ctx, env)
	if err != nil {
		a.metrics.Failed(string(env.Type))
		if a.deduper != nil {
			if relErr := a.deduper.Release(ctx, id); relErr != nil {
				a.log.Errorf("Failed to release dedupe claim %s: %v", id, relErr)
			}
		}
		return nil, err
	}
	a.metrics.Processed(string(env.Type), time.Since(started))
	a.metrics.Block(env.BlockNumber)

	if a.deduper != nil {
		if err = a.deduper.Commit(ctx, id); err != nil {
			a.log.Errorf("Failed to commit dedupe claim %s: %v", id, err)
		}
	}

	// broadcast is best-effort, subscribers catch up on the next update
	a.publish(ctx, out)

	return out, nil
}

// dispatch routes a validated envelope to its aggregator without dedupe or broadcast
func (a *AggregatorService) dispatch(ctx context.Context, env *domain.Envelope) (*Outcome, error) {
	switch env.Type {
	case domain.EventTrade:
		ev, err := env.TradeEvent()
		if err != nil {
			return nil, err
		}
		return a.trades.HandleTrade(ctx, ev)
	case domain.EventMint:
		ev, err := env.MintEvent()
		if err != nil {
			return nil, err
		}
		return a.gifts.HandleMint(ctx, ev)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

func (a *AggregatorService) publish(ctx context.Context, out *Outcome) {
	if a.broadcaster == nil || out == nil {
		return
	}
	for _, patch := range out.Patches(time.Now().UTC()) {
		if err := a.broadcaster.Publish(ctx, patch.Topic, patch); err != nil {
			a.log.Errorf("Failed to broadcast patch topic=%s: %v", patch.Topic, err)
		}
	}
}

func (a *AggregatorService) GetProtocol(ctx context.Context) (*domain.Protocol, error) {
	return a.repo.Store().LoadProtocol(ctx, a.repo.ProtocolID())
}

func (a *AggregatorService) GetProtocolDaily(ctx context.Context, day uint64) (*domain.ProtocolDaily, error) {
	return a.repo.Store().LoadProtocolDaily(ctx, domain.DailyID(a.repo.ProtocolID(), day))
}

func (a *AggregatorService) GetAccount(ctx context.Context, address string) (*domain.Account, error) {
	return a.repo.Store().LoadAccount(ctx, domain.NormalizeHex(address))
}

func (a *AggregatorService) GetAccountDaily(ctx context.Context, address string, day uint64) (*domain.AccountDaily, error) {
	return a.repo.Store().LoadAccountDaily(ctx, domain.DailyID(domain.NormalizeHex(address), day))
}

func (a *AggregatorService) GetHolding(ctx context.Context, holder, subject string) (*domain.Holding, error) {
	id := domain.HoldingID(domain.NormalizeHex(holder), domain.NormalizeHex(subject))
	return a.repo.Store().LoadHolding(ctx, id)
}

func (a *AggregatorService) GetTrade(ctx context.Context, id string) (*domain.Trade, error) {
	return a.repo.Store().LoadTrade(ctx, domain.NormalizeHex(id))
}

func (a *AggregatorService) GetTip(ctx context.Context, id string) (*domain.Tip, error) {
	return a.repo.Store().LoadTip(ctx, domain.NormalizeHex(id))
}

func (a *AggregatorService) CheckDependency(ctx context.Context) error {
	errDependency := make([]string, 0, 3)

	if err := a.repo.Store().Health(ctx); err != nil {
		errDependency = append(errDependency, fmt.Sprintf("entity store error: %v", err))
	}

	if a.deduper != nil {
		if err := a.deduper.Health(ctx); err != nil {
			errDependency = append(errDependency, fmt.Sprintf("dedupe error: %v", err))
		}
	}

	if a.broadcaster != nil {
		if err := a.broadcaster.Health(ctx); err != nil {
			errDependency = append(errDependency, "NATS: connection not ready")
		}
	}

	if len(errDependency) > 0 {
		return fmt.Errorf("dependency check failed: %s", strings.Join(errDependency, "; "))
	}

	a.log.Debugf("All dependency check passed")
	return nil
}
