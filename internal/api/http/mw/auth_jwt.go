package mw

import (
	"context"
	"errors"
	"net/http"

	"passindexer/internal/security"
	"passindexer/pkg/httputil"
)

// Key for the token subject in ctx
type claimsCtxKey struct{}

type JWTMiddleware struct {
	verifier *security.RS256Verifier
}

func NewJWTMiddleware(v *security.RS256Verifier) (*JWTMiddleware, error) {
	if v == nil {
		return nil, errors.New("jwt verifier is required")
	}
	return &JWTMiddleware{verifier: v}, nil
}

func (m *JWTMiddleware) Handler(next http.Handler) http.Handler {
	if m.verifier == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.verifier.VerifyBearer(r.Header.Get("Authorization"))
		if err != nil {
			_ = httputil.Error(w, r, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
			return
		}

		ctx := context.WithValue(r.Context(), claimsCtxKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SubjectFromContext returns the verified token subject or ""
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(claimsCtxKey{}).(string)
	return s
}
