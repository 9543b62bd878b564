// Package directory looks up a user's group memberships through the identity
// provider's admin API. Every failure degrades to "no groups".
package directory

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "signin_directory_lookups_total",
	Help: "Directory group lookups by result.",
}, []string{"result"})

// Config selects the endpoints and service account used for lookups.
type Config struct {
	Issuer       string // e.g. https://kc.example.com/realms/dockly
	AdminAPIBase string // optional explicit override
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type Client struct {
	http  *resty.Client
	cfg   Config
	cache TokenCache
	log   *zap.SugaredLogger
}

// New builds a client; cache may be nil.
func New(cfg Config, cache TokenCache, log *zap.SugaredLogger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cache == nil {
		cache = noCache{}
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: client, cfg: cfg, cache: cache, log: log}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// AdminBase returns the admin API base for the issuer's realm. An explicit override
// wins; otherwise https://host/realms/x becomes https://host/admin/realms/x.
// Empty when neither is usable.
func AdminBase(issuer, override string) string {
	if o := strings.TrimRight(strings.TrimSpace(override), "/"); o != "" {
		return o
	}
	issuer = strings.TrimRight(strings.TrimSpace(issuer), "/")
	i := strings.Index(issuer, "/realms/")
	if i < 0 {
		return ""
	}
	return issuer[:i] + "/admin" + issuer[i:]
}

// UserGroups returns the group paths of userID in provider order, or nil on any failure.
func (c *Client) UserGroups(ctx context.Context, userID string) []string {
	if c == nil || strings.TrimSpace(userID) == "" {
		return nil
	}
	token, ok := c.serviceToken(ctx)
	if !ok {
		lookups.WithLabelValues("no_token").Inc()
		return nil
	}
	base := AdminBase(c.cfg.Issuer, c.cfg.AdminAPIBase)
	if base == "" {
		c.log.Debugw("directory admin base not derivable", "issuer", c.cfg.Issuer)
		lookups.WithLabelValues("no_admin_base").Inc()
		return nil
	}
	endpoint := base + "/users/" + url.PathEscape(userID) + "/groups"
	c.log.Debugw("directory request", "method", "GET", "url", endpoint, "authorization", Mask("Bearer "+token))
	resp, err := c.http.R().SetContext(ctx).SetAuthToken(token).Get(endpoint)
	if err != nil {
		c.log.Warnw("directory lookup failed", "url", endpoint, "err", Mask(err.Error()))
		lookups.WithLabelValues("error").Inc()
		return nil
	}
	c.log.Debugw("directory response", "status", resp.StatusCode(), "body", Mask(truncate(resp.String())))
	if !resp.IsSuccess() {
		lookups.WithLabelValues("rejected").Inc()
		return nil
	}
	var groups []group
	if err := json.Unmarshal(resp.Body(), &groups); err != nil {
		lookups.WithLabelValues("bad_body").Inc()
		return nil
	}
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		switch {
		case strings.TrimSpace(g.Path) != "":
			out = append(out, strings.TrimSpace(g.Path))
		case strings.TrimSpace(g.Name) != "":
			out = append(out, "/"+strings.TrimSpace(g.Name))
		}
	}
	lookups.WithLabelValues("ok").Inc()
	return out
}

// serviceToken runs the client_credentials grant, consulting the cache first.
func (c *Client) serviceToken(ctx context.Context) (string, bool) {
	if c.cfg.Issuer == "" || c.cfg.ClientID == "" || c.cfg.ClientSecret == "" {
		c.log.Debugw("directory service account not configured")
		return "", false
	}
	key := "directory:svc-token:" + c.cfg.Issuer + ":" + c.cfg.ClientID
	if tok, ok := c.cache.Get(ctx, key); ok {
		return tok, true
	}
	endpoint := c.cfg.Issuer + "/protocol/openid-connect/token"
	form := map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
	}
	c.log.Debugw("directory token request", "url", endpoint, "client_id", c.cfg.ClientID, "client_secret", "***")
	resp, err := c.http.R().SetContext(ctx).SetFormData(form).Post(endpoint)
	if err != nil {
		c.log.Warnw("directory token exchange failed", "url", endpoint, "err", Mask(err.Error()))
		return "", false
	}
	c.log.Debugw("directory token response", "status", resp.StatusCode(), "body", Mask(truncate(resp.String())))
	if !resp.IsSuccess() {
		return "", false
	}
	var tr tokenResponse
	if err := json.Unmarshal(resp.Body(), &tr); err != nil || tr.AccessToken == "" {
		return "", false
	}
	if ttl := time.Duration(tr.ExpiresIn)*time.Second - 30*time.Second; ttl > 0 {
		c.cache.Set(ctx, key, tr.AccessToken, ttl)
	}
	return tr.AccessToken, true
}

func truncate(s string) string {
	const limit = 2048
	if len(s) > limit {
		return s[:limit] + "...(truncated)"
	}
	return s
}
