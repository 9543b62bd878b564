// cmd/identity-service/main.go
package main

import (
	"context"
	"crypto/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docklytask/internal/claims"
	"docklytask/internal/directory"
	"docklytask/internal/identity"
	"docklytask/internal/session"
	"docklytask/internal/signin"
	"docklytask/internal/tenancy"
	"docklytask/pkg/accounts"
	"docklytask/pkg/config"
	"docklytask/pkg/db"
	"docklytask/pkg/logger"
	"docklytask/pkg/middleware"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	ctx := context.Background()

	var store accounts.Store
	if pool := db.MustConnect(cfg, log); pool != nil {
		if err := accounts.EnsureSchema(ctx, pool); err != nil {
			log.Fatalw("schema", "err", err)
		}
		store = accounts.NewPostgresStore(pool, log)
	} else {
		store = accounts.NewMemoryStore(log)
	}
	rdb := db.MustRedis(cfg, log)

	rules, err := tenancy.LoadRules(cfg.RulesFile)
	if err != nil {
		log.Fatalw("resolver rules", "file", cfg.RulesFile, "err", err)
	}
	rego, err := identity.LoadRegoRolePolicy(ctx, cfg.RolePolicyFile, log)
	if err != nil {
		log.Fatalw("role policy", "file", cfg.RolePolicyFile, "err", err)
	}

	svcID, svcSecret := cfg.ServiceCredentials()
	dir := directory.New(directory.Config{
		Issuer:       cfg.Issuer,
		AdminAPIBase: cfg.AdminAPIBase,
		ClientID:     svcID,
		ClientSecret: svcSecret,
		Timeout:      cfg.OutboundTimeout,
	}, directory.NewRedisTokenCache(rdb), log)
	extractor, err := tenancy.NewExtractor(rules, dir, log)
	if err != nil {
		log.Fatalw("extractor", "err", err)
	}
	var userinfo *claims.UserInfoClient
	if cfg.UserInfoEnabled && cfg.Issuer != "" {
		userinfo = claims.NewUserInfoClient(cfg.Issuer, cfg.OutboundTimeout, log)
	}
	resolver := identity.NewResolver(
		claims.NewHarvester(userinfo, log),
		extractor,
		rules,
		identity.AnyOf{identity.MarkerRole(cfg.GlobalAdminRole), rego},
		log,
	)

	key := []byte(cfg.SessionSigningKey)
	if len(key) == 0 {
		if cfg.Env == "prod" {
			log.Fatalw("SESSION_SIGNING_KEY is required in prod")
		}
		key = make([]byte, 32)
		_, _ = rand.Read(key)
		log.Warnw("SESSION_SIGNING_KEY not set, sessions will not survive a restart")
	}
	signer := session.NewSigner(key, cfg.SessionTTL)
	svc := signin.NewService(resolver, identity.NewRepository(store, cfg.DefaultRole, log), signer, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recover(log))
	r.Use(middleware.Tracing("identity-service", log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	signin.RegisterHTTP(r, svc, signer, cfg, log)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Infow("identity-service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = middleware.ShutdownTracing(shutdownCtx)
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Infow("identity-service stopped")
}
