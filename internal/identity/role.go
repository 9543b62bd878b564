package identity

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/rego"
	"go.uber.org/zap"

	"docklytask/internal/claims"
)

// RolePolicy decides whether a claim bag grants ADMIN. It can only promote.
type RolePolicy interface {
	IsAdmin(ctx context.Context, bag claims.ClaimBag) bool
}

// MarkerRole grants ADMIN when the named role appears in realm or resource role grants.
type MarkerRole string

func (m MarkerRole) IsAdmin(_ context.Context, bag claims.ClaimBag) bool {
	if m == "" {
		return false
	}
	for _, roles := range [][]string{bag.RealmRoles(), bag.ResourceRoles()} {
		for _, r := range roles {
			if strings.EqualFold(r, string(m)) {
				return true
			}
		}
	}
	return false
}

// AnyOf grants ADMIN when any non-nil policy does.
type AnyOf []RolePolicy

func (a AnyOf) IsAdmin(ctx context.Context, bag claims.ClaimBag) bool {
	for _, p := range a {
		if p != nil && p.IsAdmin(ctx, bag) {
			return true
		}
	}
	return false
}

// RegoRolePolicy evaluates data.signin.admin with the claim bag as input.
// Undefined results and evaluation errors count as "not admin".
type RegoRolePolicy struct {
	query rego.PreparedEvalQuery
	log   *zap.SugaredLogger
}

func NewRegoRolePolicy(ctx context.Context, module string, log *zap.SugaredLogger) (*RegoRolePolicy, error) {
	q, err := rego.New(
		rego.Query("data.signin.admin"),
		rego.Module("role.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile role policy: %w", err)
	}
	return &RegoRolePolicy{query: q, log: log}, nil
}

// LoadRegoRolePolicy reads the module from path. An empty path yields nil, nil.
func LoadRegoRolePolicy(ctx context.Context, path string, log *zap.SugaredLogger) (*RegoRolePolicy, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role policy: %w", err)
	}
	return NewRegoRolePolicy(ctx, string(b), log)
}

func (p *RegoRolePolicy) IsAdmin(ctx context.Context, bag claims.ClaimBag) bool {
	if p == nil {
		return false
	}
	rs, err := p.query.Eval(ctx, rego.EvalInput(map[string]any(bag)))
	if err != nil {
		p.log.Warnw("role policy evaluation failed", "err", err)
		return false
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false
	}
	ok, _ := rs[0].Expressions[0].Value.(bool)
	return ok
}
