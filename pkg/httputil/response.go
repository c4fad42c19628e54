// Package httputil writes the {"status", "data"|"error"} JSON envelope shared by all endpoints.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type Envelope struct {
	Status string    `json:"status"` // ok|error
	Data   any       `json:"data,omitempty"`
	Error  *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"` // not_found, bad_request, unauthorized, rate_limited, internal
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// JSON writes body as data of an ok envelope; an APIError body becomes an error envelope
func JSON(w http.ResponseWriter, status int, body any, headers map[string]string) error {
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	if body == nil && status == http.StatusNoContent {
		w.WriteHeader(status)
		return nil
	}

	env := Envelope{Status: "ok", Data: body}
	switch e := body.(type) {
	case *APIError:
		env = Envelope{Status: "error", Error: e}
	case APIError:
		env = Envelope{Status: "error", Error: &e}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(env)
}

// Error writes an error envelope tagged with the chi request id
func Error(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) error {
	return JSON(w, status, &APIError{
		Code:    code,
		Message: message,
		Details: details,
		TraceID: middleware.GetReqID(r.Context()),
	}, map[string]string{
		"Cache-Control": "no-store",
	})
}
