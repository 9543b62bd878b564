// Package tenancy turns a claim bag into the tenant and customer a sign-in belongs to.
package tenancy

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"docklytask/internal/claims"
)

// Source records which precedence step produced a candidate.
type Source string

const (
	SourceExplicitClaim     Source = "explicit_claim"
	SourceEntitlementRole   Source = "entitlement_role"
	SourceGroupPath         Source = "group_path"
	SourceDirectoryAPI      Source = "directory_api"
	SourceEmailDomain       Source = "email_domain"
	SourceSingleEntitlement Source = "single_entitlement"
	SourceDefault           Source = "default"
)

// TenantCandidate is the selected tenant. TenantID is lowercased and never empty once
// returned by Extract; CustomerName keeps its display spelling.
type TenantCandidate struct {
	TenantID     string
	CustomerName string
	CustomerID   string
	Source       Source
}

// GroupSource fetches a user's group paths from the directory. It must not fail;
// nil means nothing was found.
type GroupSource interface {
	UserGroups(ctx context.Context, userID string) []string
}

type Extractor struct {
	rules     Rules
	denylist  []*regexp.Regexp
	rolePat   *regexp.Regexp
	directory GroupSource // optional
	log       *zap.SugaredLogger
}

func NewExtractor(rules Rules, directory GroupSource, log *zap.SugaredLogger) (*Extractor, error) {
	deny, err := rules.denylist()
	if err != nil {
		return nil, err
	}
	return &Extractor{rules: rules, denylist: deny, rolePat: rules.rolePattern(), directory: directory, log: log}, nil
}

var (
	containerSegment = map[string]bool{"customers": true, "customer": true, "tenants": true, "tenant": true}
	groupQualifier   = regexp.MustCompile(`(?i)^(?:customer|tenant|client)[-_: ]*`)
)

// Extract walks the precedence chain and returns the first candidate found along with
// the known group set (the groups passed in plus any the directory contributed).
// A customer id pinned by an explicit claim is carried regardless of which step wins.
func (e *Extractor) Extract(ctx context.Context, bag claims.ClaimBag, entitlements, groups []string) (TenantCandidate, []string) {
	customerID := e.lookup(bag, e.rules.CustomerIDKeys)

	// 1. explicit claims
	if tenant, name := e.lookup(bag, e.rules.TenantKeys), e.lookup(bag, e.rules.CustomerNameKeys); tenant != "" || name != "" {
		return finish(tenant, name, customerID, SourceExplicitClaim), groups
	}

	// 2. own group paths
	if name := e.groupName(groups); name != "" {
		return finish("", name, customerID, SourceGroupPath), groups
	}

	// 3. directory groups
	if e.directory != nil {
		if sub := bag.Subject(); sub != "" {
			found := e.directory.UserGroups(ctx, sub)
			groups = mergeGroups(groups, found)
			if name := e.groupName(found); name != "" {
				return finish("", name, customerID, SourceDirectoryAPI), groups
			}
		}
	}

	// 4. email domain, or <user>_<domain> usernames
	if label := domainLabel(bag); label != "" {
		return finish(label, "", customerID, SourceEmailDomain), groups
	}

	// 5. a single entitlement
	if len(entitlements) == 1 {
		src := SourceSingleEntitlement
		if e.fromRole(bag, entitlements[0]) {
			src = SourceEntitlementRole
		}
		return finish(entitlements[0], "", customerID, src), groups
	}

	e.log.Debugw("no tenant signal, using default", "sub", bag.Subject())
	return TenantCandidate{TenantID: DefaultTenant, CustomerID: customerID, Source: SourceDefault}, groups
}

func (e *Extractor) lookup(bag claims.ClaimBag, keys []string) string {
	for _, k := range keys {
		if v := bag.String(claims.Variants(k)...); v != "" {
			return v
		}
	}
	return ""
}

// groupName returns the customer name for a group list. Container paths such as
// /customers/<name> win over any other group regardless of order; only when none
// survives the denylist does the first other group's last segment count.
func (e *Extractor) groupName(groups []string) string {
	fallback := ""
	for _, g := range groups {
		if e.denied(g) {
			continue
		}
		if m := tenantGroupPath.FindStringSubmatch(g); m != nil {
			if name := strings.TrimSpace(m[1]); name != "" {
				return name
			}
		}
		if fallback == "" {
			fallback = customerFromPath(g)
		}
	}
	return fallback
}

func (e *Extractor) denied(group string) bool {
	for _, re := range e.denylist {
		if re.MatchString(group) {
			return true
		}
	}
	return false
}

func (e *Extractor) fromRole(bag claims.ClaimBag, tenant string) bool {
	set := roleTenants(bag, e.rolePat)
	return set.has(tenant)
}

// customerFromPath reads /customers/<name>/... as <name>; any other path yields its
// last segment without a customer/tenant/client prefix.
func customerFromPath(path string) string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return ""
	}
	if len(segs) >= 2 && containerSegment[strings.ToLower(segs[0])] {
		return segs[1]
	}
	return strings.TrimSpace(groupQualifier.ReplaceAllString(segs[len(segs)-1], ""))
}

// domainLabel returns the registrable label of the email domain, e.g. "acme" for
// jane@acme.de and for jane@mail.acme.co.uk. Without an email, a username like
// jane_acme.de is used instead.
func domainLabel(bag claims.ClaimBag) string {
	var domain string
	if email := bag.Email(); email != "" {
		if at := strings.LastIndex(email, "@"); at >= 0 {
			domain = email[at+1:]
		}
	} else if u := bag.Username(); u != "" {
		if i := strings.LastIndex(u, "_"); i > 0 {
			domain = u[i+1:]
		}
	}
	domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return ""
	}
	if reg, err := publicsuffix.EffectiveTLDPlusOne(domain); err == nil {
		domain = reg
	}
	label, _, _ := strings.Cut(domain, ".")
	return strings.TrimSpace(label)
}

func finish(tenant, name, customerID string, src Source) TenantCandidate {
	tenant = strings.ToLower(strings.TrimSpace(tenant))
	name = strings.TrimSpace(name)
	if tenant == "" {
		tenant = strings.ToLower(name)
	}
	if name == "" {
		name = tenant
	}
	return TenantCandidate{TenantID: tenant, CustomerName: name, CustomerID: customerID, Source: src}
}

func mergeGroups(known, found []string) []string {
	seen := make(map[string]bool, len(known))
	out := append([]string(nil), known...)
	for _, g := range known {
		seen[g] = true
	}
	for _, g := range found {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}
