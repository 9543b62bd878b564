// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	HTTPAddr string

	// OIDC provider (issuer base drives userinfo, token and admin endpoints)
	Issuer            string
	ClientID          string
	ClientSecret      string
	AdminClientID     string // preferred service account for the directory API
	AdminClientSecret string
	AdminAPIBase      string // explicit override, else derived from Issuer
	JWKSURL           string // optional bearer verification on the callback

	OutboundTimeout time.Duration
	UserInfoEnabled bool

	DefaultRole     string
	GlobalAdminRole string

	SessionSigningKey string
	SessionTTL        time.Duration

	RulesFile      string // YAML resolution rules
	RolePolicyFile string // optional rego module

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:               env("APP_ENV", "dev"),
		HTTPAddr:          env("HTTP_ADDR", ":8080"),
		Issuer:            strings.TrimRight(env("OIDC_ISSUER", ""), "/"),
		ClientID:          env("OIDC_CLIENT_ID", ""),
		ClientSecret:      env("OIDC_CLIENT_SECRET", ""),
		AdminClientID:     env("OIDC_ADMIN_CLIENT_ID", ""),
		AdminClientSecret: env("OIDC_ADMIN_CLIENT_SECRET", ""),
		AdminAPIBase:      strings.TrimRight(env("OIDC_ADMIN_API_BASE", ""), "/"),
		JWKSURL:           env("JWKS_URL", ""),
		OutboundTimeout:   envDur("OUTBOUND_TIMEOUT_MS", 5000) * time.Millisecond,
		UserInfoEnabled:   envBool("USERINFO_ENABLED", true),
		DefaultRole:       env("DEFAULT_ROLE", "USER"),
		GlobalAdminRole:   env("GLOBAL_ADMIN_ROLE", "global_admin"),
		SessionSigningKey: env("SESSION_SIGNING_KEY", ""),
		SessionTTL:        envDur("SESSION_TTL_SEC", 30*24*3600) * time.Second,
		RulesFile:         env("RESOLVER_RULES_FILE", ""),
		RolePolicyFile:    env("ROLE_POLICY_FILE", ""),
		RedisURL:          env("REDIS_URL", ""),
		DatabaseURL:       env("DATABASE_URL", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set, using in-memory account store for dev")
	}
	return cfg
}

// ServiceCredentials returns the client used for the client_credentials grant.
// The dedicated admin client wins when both of its fields are set.
func (c Config) ServiceCredentials() (id, secret string) {
	if c.AdminClientID != "" && c.AdminClientSecret != "" {
		return c.AdminClientID, c.AdminClientSecret
	}
	return c.ClientID, c.ClientSecret
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i <= 0 {
			return time.Duration(def)
		}
		return time.Duration(i)
	}
	return time.Duration(def)
}
