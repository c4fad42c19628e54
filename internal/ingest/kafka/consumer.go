package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/segmentio/kafka-go"
	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/config"
	"passindexer/internal/domain"
	"passindexer/internal/ingest"
)

type Handler interface {
	Handle(ctx context.Context, env *domain.Envelope) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ErrChainSplit is returned when one chain's events arrive on more than one partition
var ErrChainSplit = errors.New("chain events split across partitions")

// Consumer reads envelopes from one topic and hands them to the handler one at a time.
// The offset is committed only after the handler returns nil.
//
// Producers must key messages by chain id so that every event of a chain lands on one
// partition in (block, logIndex) order. The replay guard keeps a single mark per chain and
// would skip events of that chain arriving late from another partition.
type Consumer struct {
	log     logger.Logger
	reader  messageReader
	handler Handler

	partitions map[uint32]int // chain id -> partition it was first seen on
}

func NewConsumer(log logger.Logger, cfg *config.IngestConfig, handler Handler) (*Consumer, error) {
	if cfg == nil {
		return nil, errors.New("config is required to the kafka consumer")
	}
	if handler == nil {
		return nil, errors.New("handler is required to the kafka consumer")
	}

	rc := kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		MaxWait:        cfg.MaxWait,
		SessionTimeout: cfg.SessionTimeout,
		StartOffset:    kafka.FirstOffset,
	}
	if cfg.Start == "latest" {
		rc.StartOffset = kafka.LastOffset
	}
	if rc.MaxBytes == 0 {
		rc.MaxBytes = 10e6
	}

	if cfg.TLS.Enabled {
		tlsCfg, err := loadTLS(&cfg.TLS)
		if err != nil {
			return nil, err
		}
		rc.Dialer = &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true, TLS: tlsCfg}
	}

	return &Consumer{
		log:     log,
		reader:  kafka.NewReader(rc),
		handler: handler,
	}, nil
}

// Run blocks until ctx is done or an event fails
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Infof("Kafka consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		env, err := decodeMessage(msg)
		if err != nil {
			c.log.Errorf("Malformed message partition=%d offset=%d: %v", msg.Partition, msg.Offset, err)
			return err
		}

		if err = c.checkPartition(env.ChainID, msg.Partition); err != nil {
			c.log.Errorf("Rejected message partition=%d offset=%d: %v", msg.Partition, msg.Offset, err)
			return err
		}

		if err = c.handler.Handle(ctx, env); err != nil {
			c.log.Errorf("Event failed partition=%d offset=%d: %v", msg.Partition, msg.Offset, err)
			return err
		}

		if err = c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka commit offset=%d: %w", msg.Offset, err)
		}
	}
}

func (c *Consumer) checkPartition(chainID uint32, partition int) error {
	if c.partitions == nil {
		c.partitions = make(map[uint32]int)
	}
	first, ok := c.partitions[chainID]
	if !ok {
		c.partitions[chainID] = partition
		return nil
	}
	if first != partition {
		return fmt.Errorf("%w: chain=%d partitions=%d,%d", ErrChainSplit, chainID, first, partition)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func decodeMessage(msg kafka.Message) (*domain.Envelope, error) {
	var env domain.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, fmt.Errorf("%w: offset=%d: %v", ingest.ErrDecode, msg.Offset, err)
	}
	return &env, nil
}

func loadTLS(cfg *config.TLSConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.CAFile != "" {
		ca, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read kafka ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(ca) {
			return nil, errors.New("kafka ca file has no certificates")
		}
		tlsCfg.RootCAs = pool
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load kafka client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	return tlsCfg, nil
}
