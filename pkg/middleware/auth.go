// pkg/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"go.uber.org/zap"

	"docklytask/pkg/config"
	"docklytask/pkg/problems"
)

// jwksCache caches JWKS sets per URL.
type jwksCache struct {
	mu   sync.RWMutex
	sets map[string]cachedJWKS
}

type cachedJWKS struct {
	set     jwk.Set
	expires time.Time
}

// get returns the cached set for url, fetching it when missing or stale. The fetch
// runs outside the lock and is bounded by timeout; concurrent misses may fetch twice.
func (c *jwksCache) get(ctx context.Context, url string, ttl, timeout time.Duration) (jwk.Set, error) {
	c.mu.RLock()
	e, ok := c.sets[url]
	c.mu.RUnlock()
	if ok && time.Now().Before(e.expires) {
		return e.set, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	set, err := jwk.Fetch(fetchCtx, url)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sets == nil {
		c.sets = map[string]cachedJWKS{}
	}
	c.sets[url] = cachedJWKS{set: set, expires: time.Now().Add(ttl)}
	return set, nil
}

type ctxBearerKey struct{}

// BearerAuth verifies "Authorization: Bearer <access token>" against the issuer JWKS.
// Without JWKS_URL verification is off. In dev a request without Authorization passes.
// An unreachable JWKS endpoint fails open: the request continues without a verified
// token (BearerFrom returns nil) after at most cfg.OutboundTimeout.
func BearerAuth(cfg config.Config, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	cache := &jwksCache{}
	jwksTTL := 6 * time.Hour
	timeout := cfg.OutboundTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.JWKSURL == "" {
				next.ServeHTTP(w, r)
				return
			}
			authz := r.Header.Get("Authorization")
			if cfg.Env == "dev" && strings.TrimSpace(authz) == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				problems.Write(w, http.StatusUnauthorized, "missing-bearer", "Missing bearer token", "")
				return
			}
			raw := strings.TrimSpace(authz[len("Bearer "):])

			set, err := cache.get(r.Context(), cfg.JWKSURL, jwksTTL, timeout)
			if err != nil {
				log.Warnw("jwks fetch failed, bearer not verified", "url", cfg.JWKSURL, "err", err,
					"request_id", RequestIDFrom(r.Context()))
				next.ServeHTTP(w, r)
				return
			}
			opts := []jwt.ParseOption{jwt.WithKeySet(set), jwt.WithValidate(true), jwt.WithAcceptableSkew(30 * time.Second)}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			jt, err := jwt.Parse([]byte(raw), opts...)
			if err != nil {
				log.Debugw("bearer rejected", "err", err, "request_id", RequestIDFrom(r.Context()))
				problems.Write(w, http.StatusUnauthorized, "invalid-token", "Invalid bearer token", "")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxBearerKey{}, jt)))
		})
	}
}

// BearerFrom returns the verified access token, or nil when verification was skipped.
func BearerFrom(ctx context.Context) jwt.Token {
	jt, _ := ctx.Value(ctxBearerKey{}).(jwt.Token)
	return jt
}
