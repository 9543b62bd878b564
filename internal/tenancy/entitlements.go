package tenancy

import (
	"regexp"
	"strings"

	"docklytask/internal/claims"
)

var tenantGroupPath = regexp.MustCompile(`(?i)/(?:customers|customer|tenants|tenant)/([^/]+)`)

// ParseEntitlements collects every tenant string the bag grants: entitlement claims
// (list or delimited string, top level or under extra/attributes), entitlement role
// strings, and tenant-shaped group paths. Duplicates are dropped case-insensitively;
// first spelling wins.
func ParseEntitlements(bag claims.ClaimBag, rules Rules) []string {
	var set tenantSet
	for _, name := range rules.entitlementNames() {
		for _, p := range claims.Variants(name) {
			for _, v := range bag.Strings(p) {
				set.add(claims.SplitList(v)...)
			}
		}
	}
	set.add(RoleEntitlements(bag, rules)...)
	for _, g := range bag.Groups() {
		if m := tenantGroupPath.FindStringSubmatch(g); m != nil {
			set.add(m[1])
		}
	}
	return set.list
}

// RoleEntitlements returns the tenants named by entitlement role strings in realm or
// resource role grants.
func RoleEntitlements(bag claims.ClaimBag, rules Rules) []string {
	return roleTenants(bag, rules.rolePattern()).list
}

func roleTenants(bag claims.ClaimBag, re *regexp.Regexp) tenantSet {
	var set tenantSet
	if re == nil {
		return set
	}
	roles := append(bag.RealmRoles(), bag.ResourceRoles()...)
	for _, role := range roles {
		if m := re.FindStringSubmatch(strings.TrimSpace(role)); m != nil {
			set.add(m[1])
		}
	}
	return set
}

type tenantSet struct {
	seen map[string]bool
	list []string
}

func (s *tenantSet) add(vals ...string) {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if s.seen == nil {
			s.seen = map[string]bool{}
		}
		if s.seen[k] {
			continue
		}
		s.seen[k] = true
		s.list = append(s.list, v)
	}
}

func (s *tenantSet) has(v string) bool {
	return s.seen[strings.ToLower(strings.TrimSpace(v))]
}
