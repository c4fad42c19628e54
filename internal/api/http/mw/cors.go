package mw

import (
	"net/http"
	"slices"
	"strings"

	"passindexer/internal/config"
)

type CORSMiddleware struct {
	origins []string
	methods string
	headers string
}

func NewCORS(cfg *config.CORSConfig) *CORSMiddleware {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &CORSMiddleware{
		origins: cfg.Origins,
		methods: joinOrDefault(cfg.Methods, "GET, OPTIONS"),
		headers: joinOrDefault(cfg.Headers, "Authorization, Content-Type"),
	}
}

func (c *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := c.allowOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", c.methods)
			w.Header().Set("Access-Control-Allow-Headers", c.headers)
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// empty list or "*" allows any origin
func (c *CORSMiddleware) allowOrigin(origin string) string {
	if len(c.origins) == 0 || slices.Contains(c.origins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(c.origins, origin) {
		return origin
	}
	return ""
}

func joinOrDefault(v []string, def string) string {
	out := make([]string, 0, len(v))
	for _, s := range v {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return strings.Join(out, ", ")
}
