package app

import (
	"context"
	"errors"
	"time"

	"gitlab.com/nevasik7/alerting/logger"
	"golang.org/x/sync/errgroup"
)

type HTTPServer interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Runner is the event feed; Run returns nil when ctx is done
type Runner interface {
	Run(ctx context.Context) error
}

type App struct {
	log             logger.Logger
	feed            Runner
	httpSrv         HTTPServer
	shutdownTimeout time.Duration
}

func New(log logger.Logger, feed Runner, httpSrv HTTPServer, shutdownTimeout time.Duration) (*App, error) {
	if feed == nil {
		return nil, errors.New("feed is required to the app")
	}
	if httpSrv == nil {
		return nil, errors.New("http server is required to the app")
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &App{log: log, feed: feed, httpSrv: httpSrv, shutdownTimeout: shutdownTimeout}, nil
}

// Run serves until ctx is done or either the feed or the HTTP server fails.
// A failed event stops the feed and brings the whole app down.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.feed.Run(gctx); err != nil {
			return err
		}
		if ctx.Err() == nil {
			return errors.New("event feed stopped")
		}
		return nil
	})

	g.Go(a.httpSrv.Start)

	g.Go(func() error {
		<-gctx.Done()
		a.log.Debug("App stopped begin...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()
		return a.httpSrv.Shutdown(shutdownCtx)
	})

	a.log.Info("App started")
	err := g.Wait()
	a.log.Info("App stopped")
	return err
}
