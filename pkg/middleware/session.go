// pkg/middleware/session.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"docklytask/pkg/problems"
)

type ctxSessionKey struct{}

// SessionAuth reads the session token from "Authorization: Bearer" or the
// session cookie, verifies it and stores the decoded session on the context.
func SessionAuth[S any](cookie string, verify func(raw string) (S, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := ""
			if authz := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				raw = strings.TrimSpace(authz[len("Bearer "):])
			} else if c, err := r.Cookie(cookie); err == nil {
				raw = c.Value
			}
			if raw == "" {
				problems.Write(w, http.StatusUnauthorized, "no-session", "No session", "")
				return
			}
			s, err := verify(raw)
			if err != nil {
				problems.Write(w, http.StatusUnauthorized, "invalid-session", "Invalid session", "")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxSessionKey{}, s)))
		})
	}
}

// SessionFrom returns the session stored by SessionAuth.
func SessionFrom[S any](ctx context.Context) (S, bool) {
	s, ok := ctx.Value(ctxSessionKey{}).(S)
	return s, ok
}
