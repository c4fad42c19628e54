package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"

	apihttp "passindexer/internal/api/http"
	"passindexer/internal/api/http/handlers"
	"passindexer/internal/api/http/mw"
	"passindexer/internal/config"
	"passindexer/internal/curve"
	"passindexer/internal/dedupe"
	rdbdedupe "passindexer/internal/dedupe/redis"
	"passindexer/internal/domain"
	"passindexer/internal/ingest"
	"passindexer/internal/ingest/kafka"
	"passindexer/internal/metrics"
	"passindexer/internal/pubsub"
	"passindexer/internal/pubsub/nats"
	"passindexer/internal/repository"
	"passindexer/internal/security"
	"passindexer/internal/service"
	"passindexer/internal/stores/clickhouse"
	"passindexer/internal/stores/memory"
	"passindexer/internal/stores/postgres"
	"passindexer/internal/stores/redis"
)

type Container struct {
	app *App
	log logger.Logger

	// infra, nil when not configured
	redis    *redis.Client
	ch       *clickhouse.Conn
	chWriter *clickhouse.Writer
	nc       *nats.Client
	profiler *pyroscope.Profiler

	consumer *kafka.Consumer
	closers  []func(ctx context.Context) error
}

// onClose registers a cleanup step; steps run in reverse order
func (c *Container) onClose(f func(ctx context.Context) error) {
	c.closers = append(c.closers, f)
}

func (c *Container) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			c.log.Errorf("Cleanup step failed: %v", err)
		}
	}
	c.log.Info("Successfully cleaned up dependency")
}

// Build constructs the app; on error everything opened so far is closed
func Build(ctx context.Context, cfg *config.Config) (_ *Container, _ func(), err error) {
	lg := logger.New(lgcfg.LoggerCfg{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	lg.Info("Successfully initialize logger")

	c := &Container{log: lg}
	defer func() {
		if err != nil {
			c.cleanup()
		}
	}()

	if err = c.initProfiler(cfg); err != nil {
		return nil, nil, err
	}
	m := metrics.New(prometheus.DefaultRegisterer)

	if cfg.Stores.Redis.Addr != "" {
		if c.redis, err = redis.New(ctx, cfg.Stores.Redis); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis client: %w", err)
		}
		c.onClose(func(context.Context) error { return c.redis.Close() })
		lg.Infof("Successfully initialize redis client, addr=%s", cfg.Stores.Redis.Addr)
	}

	store, err := c.entityStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Stores.ClickHouse.Enabled {
		if store, err = c.mirror(ctx, cfg, store); err != nil {
			return nil, nil, err
		}
	}

	svc, err := c.service(ctx, cfg, store, m)
	if err != nil {
		return nil, nil, err
	}

	if err = c.initConsumer(ctx, cfg, svc, m); err != nil {
		return nil, nil, err
	}

	httpSrv, err := c.httpServer(cfg, svc)
	if err != nil {
		return nil, nil, err
	}

	if c.app, err = New(lg, c.consumer, httpSrv, cfg.App.ShutdownTimeout); err != nil {
		return nil, nil, err
	}

	lg.Info("Successfully initialize Wiring")
	return c, c.cleanup, nil
}

func (c *Container) initProfiler(cfg *config.Config) error {
	profiler, err := metrics.InitPProf(&metrics.PProfConfig{
		Enabled:       cfg.Metrics.Pyroscope.Enabled,
		AppInstanceID: cfg.App.InstanceID,
		AppName:       cfg.Metrics.Pyroscope.AppName,
		ServerAddr:    cfg.Metrics.Pyroscope.ServerAddr,
		AuthToken:     cfg.Metrics.Pyroscope.AuthToken,
		Tags:          cfg.Metrics.Pyroscope.Tags,
	})
	if err != nil {
		return fmt.Errorf("pyroscope initialize failed: %w", err)
	}
	if profiler == nil {
		return nil
	}

	c.profiler = profiler
	c.onClose(func(context.Context) error { return c.profiler.Stop() })
	c.log.Infof("Successfully initialize Pyroscope to %s as %s", cfg.Metrics.Pyroscope.ServerAddr, cfg.Metrics.Pyroscope.AppName)
	return nil
}

func (c *Container) entityStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Stores.Backend {
	case config.BackendRedis:
		s, err := redis.NewEntityStore(c.redis, cfg.Stores.Redis.Prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis entity store: %w", err)
		}
		c.log.Info("Successfully initialize redis entity store")
		return s, nil

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, &cfg.Stores.Postgres)
		if err != nil {
			return nil, err
		}
		c.onClose(func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})

		s, err := postgres.NewEntityStore(db)
		if err != nil {
			return nil, err
		}
		c.log.Info("Successfully initialize postgres entity store")
		return s, nil

	default:
		c.log.Warn("Using the in-memory entity store, state is lost on restart")
		return memory.New(), nil
	}
}

func (c *Container) mirror(ctx context.Context, cfg *config.Config, store repository.Store) (repository.Store, error) {
	var err error
	if c.ch, err = clickhouse.New(ctx, &cfg.Stores.ClickHouse); err != nil {
		return nil, fmt.Errorf("failed to initialize clickhouse client: %w", err)
	}
	c.onClose(func(context.Context) error { return c.ch.Close() })

	if err = c.ch.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	c.chWriter = clickhouse.NewWriter(c.log, c.ch.Native, cfg.Stores.ClickHouse.Writer)
	c.onClose(c.chWriter.Close)

	mirror, err := clickhouse.NewMirror(c.log, store, c.chWriter)
	if err != nil {
		return nil, err
	}

	url, _, _ := strings.Cut(cfg.Stores.ClickHouse.DSN, "?")
	c.log.Infof("Successfully initialize clickhouse mirror, url=%s", url)
	return mirror, nil
}

func (c *Container) service(ctx context.Context, cfg *config.Config, store repository.Store, m *metrics.Metrics) (*service.AggregatorService, error) {
	scale, err := domain.ParseAmount(cfg.Protocol.CurveScale)
	if err != nil {
		return nil, fmt.Errorf("protocol.curve_scale: %w", err)
	}
	divisor, err := domain.ParseAmount(cfg.Protocol.CurveDivisor)
	if err != nil {
		return nil, fmt.Errorf("protocol.curve_divisor: %w", err)
	}
	pricer, err := curve.New(scale, divisor)
	if err != nil {
		return nil, err
	}

	repo, err := repository.New(store, domain.NormalizeHex(cfg.Protocol.ID))
	if err != nil {
		return nil, err
	}

	trades, err := service.NewTradeAggregator(c.log, repo, pricer)
	if err != nil {
		return nil, err
	}
	gifts, err := service.NewGiftAggregator(c.log, repo)
	if err != nil {
		return nil, err
	}

	deduper, err := c.deduper(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var broadcaster pubsub.Broadcaster
	if cfg.PubSub.NATS.Enabled {
		if c.nc, err = nats.New(c.log, &cfg.PubSub.NATS); err != nil {
			return nil, fmt.Errorf("failed to initialize nats client: %w", err)
		}
		c.onClose(func(context.Context) error { return c.nc.Close() })
		broadcaster = c.nc
	}

	return service.NewAggregatorService(c.log, repo, trades, gifts, deduper, broadcaster, m)
}

func (c *Container) deduper(ctx context.Context, cfg *config.Config) (dedupe.Deduper, error) {
	if !cfg.Dedupe.Enabled {
		return nil, nil
	}

	if cfg.Dedupe.Backend == config.BackendMemory || c.redis == nil {
		d := dedupe.NewInMemoryDedupe(c.log, cfg.Dedupe.TTL, cfg.Dedupe.Janitor)
		c.onClose(func(context.Context) error { d.Close(); return nil })
		c.log.Info("Successfully initialize in-memory deduper")
		return d, nil
	}

	var bloom *rdbdedupe.Bloom
	if cfg.Dedupe.Bloom.Enabled {
		b, err := rdbdedupe.NewBloom(&cfg.Dedupe.Bloom, c.redis)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize bloom: %w", err)
		}
		if err = b.Ensure(ctx); err != nil {
			// RedisBloom module missing: run on SETNX alone
			c.log.Warnf("Bloom filter disabled: %v", err)
		} else {
			bloom = b
			c.log.Infof("Successfully initialize Bloom by key=%s, cap=%d, errRate=%f", b.Key, b.Capacity, b.ErrRate)
		}
	}

	d, err := rdbdedupe.NewRedisDeduper(c.log, &cfg.Dedupe, c.redis, bloom)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis deduper: %w", err)
	}
	c.log.Infof("Successfully initialize redis deduper by prefix %s", cfg.Dedupe.Prefix)
	return d, nil
}

func (c *Container) initConsumer(_ context.Context, cfg *config.Config, svc *service.AggregatorService, m *metrics.Metrics) error {
	var checkpoints ingest.CheckpointStore
	if c.redis != nil {
		cp, err := redis.NewCheckpointStore(c.redis, cfg.Checkpoint.Key)
		if err != nil {
			return err
		}
		checkpoints = cp
	} else {
		c.log.Warn("No redis configured, replay protection only lasts for this process")
	}

	processor, err := ingest.NewProcessor(c.log, ingest.NewSequencer(checkpoints), svc, m)
	if err != nil {
		return err
	}

	if c.consumer, err = kafka.NewConsumer(c.log, &cfg.Ingest, processor); err != nil {
		return fmt.Errorf("failed to initialize kafka consumer: %w", err)
	}
	c.onClose(func(context.Context) error { return c.consumer.Close() })

	c.log.Infof("Successfully initialize kafka consumer, topic=%s group=%s", cfg.Ingest.Topic, cfg.Ingest.GroupID)
	return nil
}

func (c *Container) httpServer(cfg *config.Config, svc *service.AggregatorService) (*apihttp.Server, error) {
	h, err := handlers.NewHandler(c.log, svc)
	if err != nil {
		return nil, err
	}

	mws := apihttp.Middlewares{
		Logging: mw.NewLogging(c.log),
		Gzip:    mw.NewGzip(cfg.API.HTTP.GzipLevel, c.log),
		CORS:    mw.NewCORS(&cfg.API.HTTP.CORS),
	}

	var verifier *security.RS256Verifier
	if cfg.Security.JWT.Enabled {
		if verifier, err = security.NewRS256Verifier(&cfg.Security.JWT); err != nil {
			return nil, fmt.Errorf("failed to initialize jwt verifier: %w", err)
		}
		if mws.JWT, err = mw.NewJWTMiddleware(verifier); err != nil {
			return nil, err
		}
		c.log.Info("Successfully initialize JWT verifier")
	}

	if cfg.RateLimit.Enabled {
		if c.redis == nil {
			c.log.Warn("Rate limit enabled without redis, skipping")
		} else {
			mws.RateLimit = mw.NewRateLimit(&cfg.RateLimit, c.redis, verifier)
		}
	}

	router := apihttp.BuildRouter(h, metrics.Handler(nil), mws)

	srv, err := apihttp.NewServer(c.log, &cfg.API.HTTP, router)
	if err != nil {
		return nil, err
	}
	c.log.Infof("Successfully initialize HTTP server on %s", cfg.API.HTTP.Addr)
	return srv, nil
}
