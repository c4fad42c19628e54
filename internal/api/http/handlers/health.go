package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gitlab.com/nevasik7/alerting/logger"

	"passindexer/internal/domain"
	"passindexer/pkg/httputil"
)

// EntityReader is the read side of the aggregation service
type EntityReader interface {
	GetProtocol(ctx context.Context) (*domain.Protocol, error)
	GetProtocolDaily(ctx context.Context, day uint64) (*domain.ProtocolDaily, error)
	GetAccount(ctx context.Context, address string) (*domain.Account, error)
	GetAccountDaily(ctx context.Context, address string, day uint64) (*domain.AccountDaily, error)
	GetHolding(ctx context.Context, holder, subject string) (*domain.Holding, error)
	GetTrade(ctx context.Context, id string) (*domain.Trade, error)
	GetTip(ctx context.Context, id string) (*domain.Tip, error)
	CheckDependency(ctx context.Context) error
}

type Handler struct {
	Log    logger.Logger
	Reader EntityReader
}

func NewHandler(log logger.Logger, reader EntityReader) (*Handler, error) {
	if reader == nil {
		return nil, errors.New("entity reader is required")
	}
	return &Handler{Log: log, Reader: reader}, nil
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	if err := httputil.JSON(w, http.StatusOK, map[string]any{}, nil); err != nil {
		h.Log.Errorf("Healthz handler error: %s", err.Error())
	}
}

// Readiness checks the entity store, deduper and broadcaster
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Reader.CheckDependency(ctx); err != nil {
		err = httputil.Error(w, r, http.StatusServiceUnavailable, "dependencies_unhealthy", "dependencies check failed", map[string]any{
			"error": err.Error(),
		})
		if err != nil {
			h.Log.Errorf("Readiness handler error: %s", err.Error())
		}
		return
	}

	if err := httputil.JSON(w, http.StatusOK, map[string]string{"dependencies": "healthy"}, nil); err != nil {
		h.Log.Errorf("Readiness handler error: %s", err.Error())
	}
}
