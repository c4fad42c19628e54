package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"passindexer/internal/repository"
	"passindexer/pkg/httputil"
)

func (h *Handler) Protocol(w http.ResponseWriter, r *http.Request) {
	p, err := h.Reader.GetProtocol(r.Context())
	h.respond(w, r, p, err)
}

func (h *Handler) ProtocolDaily(w http.ResponseWriter, r *http.Request) {
	day, ok := h.day(w, r)
	if !ok {
		return
	}
	d, err := h.Reader.GetProtocolDaily(r.Context(), day)
	h.respond(w, r, d, err)
}

func (h *Handler) Account(w http.ResponseWriter, r *http.Request) {
	a, err := h.Reader.GetAccount(r.Context(), chi.URLParam(r, "address"))
	h.respond(w, r, a, err)
}

func (h *Handler) AccountDaily(w http.ResponseWriter, r *http.Request) {
	day, ok := h.day(w, r)
	if !ok {
		return
	}
	d, err := h.Reader.GetAccountDaily(r.Context(), chi.URLParam(r, "address"), day)
	h.respond(w, r, d, err)
}

func (h *Handler) Holding(w http.ResponseWriter, r *http.Request) {
	hd, err := h.Reader.GetHolding(r.Context(), chi.URLParam(r, "holder"), chi.URLParam(r, "subject"))
	h.respond(w, r, hd, err)
}

func (h *Handler) Trade(w http.ResponseWriter, r *http.Request) {
	t, err := h.Reader.GetTrade(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, t, err)
}

func (h *Handler) Tip(w http.ResponseWriter, r *http.Request) {
	t, err := h.Reader.GetTip(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, t, err)
}

// {day} is the unix day index (timestamp / 86400)
func (h *Handler) day(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	day, err := strconv.ParseUint(chi.URLParam(r, "day"), 10, 64)
	if err != nil {
		if err = httputil.Error(w, r, http.StatusBadRequest, "bad_request", "day must be a non-negative integer", nil); err != nil {
			h.Log.Errorf("Write response error: %s", err.Error())
		}
		return 0, false
	}
	return day, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body any, err error) {
	switch {
	case err == nil:
		err = httputil.JSON(w, http.StatusOK, body, nil)
	case errors.Is(err, repository.ErrNotFound):
		err = httputil.Error(w, r, http.StatusNotFound, "not_found", "entity not found", nil)
	default:
		h.Log.Errorf("Read %s failed: %v", r.URL.Path, err)
		err = httputil.Error(w, r, http.StatusInternalServerError, "internal", "failed to read entity", nil)
	}

	if err != nil {
		h.Log.Errorf("Write response error: %s", err.Error())
	}
}
