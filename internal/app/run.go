package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"passindexer/internal/config"
)

// Run assembles the container, serves until SIGINT/SIGTERM or a fatal error, then cleans up
func Run(cfg *config.Config) error {
	ctxBuild, cancelBuild := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelBuild()

	container, cleanup, err := Build(ctxBuild, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return container.app.Run(sigCtx)
}
