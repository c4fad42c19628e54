package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/config"
)

var (
	ErrWriterClosed = errors.New("clickhouse writer closed")
	ErrWriterFull   = errors.New("clickhouse writer buffer full")
)

// Writer batches mirror rows and inserts them per table in the background.
// Insert failures are logged and the batch is dropped; the entity store stays the source of truth.
// Enqueue never blocks and every send runs under InsertTimeout.
type Writer struct {
	log logger.Logger

	conn ch.Conn
	cfg  config.ClickHouseWriterConfig
	send func(ctx context.Context, table string, rows []Row) error

	inCh      chan Row
	closedCh  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewWriter(log logger.Logger, conn ch.Conn, cfg config.ClickHouseWriterConfig) *Writer {
	w := newWriter(log, cfg)
	w.conn = conn
	w.send = w.insertBatch

	w.wg.Add(1)
	go w.loop()

	return w
}

func newWriter(log logger.Logger, cfg config.ClickHouseWriterConfig) *Writer {
	if cfg.BatchMaxRows <= 0 {
		cfg.BatchMaxRows = 1000
	}
	if cfg.BatchMaxInterval <= 0 {
		cfg.BatchMaxInterval = 200 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	if cfg.InsertTimeout <= 0 {
		cfg.InsertTimeout = 10 * time.Second
	}

	return &Writer{
		log:      log,
		cfg:      cfg,
		inCh:     make(chan Row, 8192),
		closedCh: make(chan struct{}),
	}
}

func (w *Writer) Enqueue(row Row) error {
	select {
	case <-w.closedCh:
		return ErrWriterClosed
	default:
	}

	select {
	case w.inCh <- row:
		return nil
	case <-w.closedCh:
		return ErrWriterClosed
	default:
		return ErrWriterFull
	}
}

func (w *Writer) Health(ctx context.Context) error {
	if w.conn == nil {
		return nil
	}
	return w.conn.Ping(ctx)
}

// Close stops intake, flushes what is buffered and waits for the loop
func (w *Writer) Close(ctx context.Context) error {
	w.closeOnce.Do(func() {
		close(w.closedCh)
	})

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) loop() {
	defer w.wg.Done()

	batches := make(map[string][]Row)
	pending := 0
	ticker := time.NewTicker(w.cfg.BatchMaxInterval)
	defer ticker.Stop()

	flush := func() {
		if pending == 0 {
			return
		}
		for table, rows := range batches {
			if len(rows) == 0 {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), w.cfg.InsertTimeout)
			if err := w.send(ctx, table, rows); err != nil {
				w.log.Errorf("Failed insert [%d] rows into %s, error=%v", len(rows), table, err)
			}
			cancel()
			batches[table] = rows[:0]
		}
		pending = 0
	}

	add := func(row Row) {
		batches[row.Table()] = append(batches[row.Table()], row)
		pending++
		if pending >= w.cfg.BatchMaxRows {
			flush()
		}
	}

	for {
		select {
		case row := <-w.inCh:
			add(row)
		case <-ticker.C:
			flush()
		case <-w.closedCh:
			for {
				select {
				case row := <-w.inCh:
					add(row)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (w *Writer) insertBatch(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(rows[0].Columns(), ", "))
	backoff := w.cfg.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w, last error: %v", ctx.Err(), lastErr)
			}
			backoff *= 2
		}

		if lastErr = w.sendOnce(ctx, query, rows); lastErr == nil {
			return nil
		}
	}

	return lastErr
}

func (w *Writer) sendOnce(ctx context.Context, query string, rows []Row) error {
	batch, err := w.conn.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}

	for _, r := range rows {
		if err = batch.Append(r.Values()...); err != nil {
			_ = batch.Abort()
			return err
		}
	}

	return batch.Send()
}
