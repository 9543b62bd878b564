// Package identity assembles the (user, role, tenant, customer) tuple for a sign-in
// and persists it idempotently.
package identity

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"docklytask/internal/claims"
	"docklytask/internal/tenancy"
)

// RoleAdmin is the only role the pipeline ever assigns on its own.
const RoleAdmin = "ADMIN"

// ErrMissingEmail means no claim source carried an email. The session can still be
// issued, but nothing is persisted.
var ErrMissingEmail = errors.New("identity: no email in any claim source")

var tracer = otel.Tracer("docklytask/internal/identity")

// ResolvedIdentity is the outcome of one resolution. TenantID is never empty.
// Role is RoleAdmin or empty; empty leaves the persisted role alone.
type ResolvedIdentity struct {
	Email        string
	DisplayName  string
	AvatarURL    string
	TenantID     string
	CustomerID   string
	CustomerName string
	Role         string
	Groups       []string
	Tenants      []string
	Source       tenancy.Source
}

// Resolution carries the identity together with the claim bag it was built from.
type Resolution struct {
	Identity ResolvedIdentity
	Claims   claims.ClaimBag
}

type Resolver struct {
	harvester *claims.Harvester
	extractor *tenancy.Extractor
	rules     tenancy.Rules
	roles     RolePolicy
	log       *zap.SugaredLogger
}

func NewResolver(h *claims.Harvester, x *tenancy.Extractor, rules tenancy.Rules, roles RolePolicy, log *zap.SugaredLogger) *Resolver {
	return &Resolver{harvester: h, extractor: x, rules: rules, roles: roles, log: log}
}

// Resolve runs the pipeline for one sign-in. It performs no writes. The returned
// Resolution is always usable; the only error is ErrMissingEmail.
func (r *Resolver) Resolve(ctx context.Context, creds claims.Credentials) (Resolution, error) {
	ctx, span := tracer.Start(ctx, "identity.resolve", trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	bag := r.harvester.Harvest(ctx, creds)
	res := r.FromClaims(ctx, bag)
	id := res.Identity
	span.SetAttributes(
		attribute.String("tenant.id", id.TenantID),
		attribute.String("tenant.source", string(id.Source)),
		attribute.Bool("role.admin", id.Role == RoleAdmin),
	)
	if id.Email == "" {
		span.AddEvent("email missing")
		return res, ErrMissingEmail
	}
	return res, nil
}

// FromClaims resolves an already harvested bag.
func (r *Resolver) FromClaims(ctx context.Context, bag claims.ClaimBag) Resolution {
	tenants := tenancy.ParseEntitlements(bag, r.rules)
	cand, groups := r.extractor.Extract(ctx, bag, tenants, bag.Groups())

	id := ResolvedIdentity{
		Email:        bag.Email(),
		DisplayName:  bag.DisplayName(),
		AvatarURL:    bag.AvatarURL(),
		TenantID:     cand.TenantID,
		CustomerID:   cand.CustomerID,
		CustomerName: cand.CustomerName,
		Groups:       groups,
		Tenants:      tenants,
		Source:       cand.Source,
	}
	if r.roles != nil && r.roles.IsAdmin(ctx, bag) {
		id.Role = RoleAdmin
	}
	r.log.Debugw("identity resolved",
		"email", id.Email, "tenant", id.TenantID, "customer", id.CustomerName,
		"source", id.Source, "admin", id.Role == RoleAdmin)
	return Resolution{Identity: id, Claims: bag}
}
