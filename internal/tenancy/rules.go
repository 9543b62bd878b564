package tenancy

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DefaultTenant is used when no candidate resolves.
const DefaultTenant = "default"

// Rules names the claims and group patterns tenant resolution looks at.
// Loaded from YAML; omitted fields keep their defaults.
type Rules struct {
	UseEntitlement    string   `yaml:"use_entitlement"`
	ManageEntitlement string   `yaml:"manage_entitlement"`
	TenantKeys        []string `yaml:"tenant_keys"`
	CustomerIDKeys    []string `yaml:"customer_id_keys"`
	CustomerNameKeys  []string `yaml:"customer_name_keys"`
	// GroupDenylist holds case-insensitive regular expressions matched against full group paths.
	GroupDenylist []string `yaml:"group_denylist"`
}

func DefaultRules() Rules {
	return Rules{
		UseEntitlement:    "use_docklytask",
		ManageEntitlement: "manage_docklytask",
		TenantKeys:        []string{"tenant_id", "tenantId", "tenant"},
		CustomerIDKeys:    []string{"customer_id", "customerId"},
		CustomerNameKeys:  []string{"customer_name", "customerName", "customer", "company", "organization"},
		GroupDenylist: []string{
			`^/?realm-management(/|$)`,
			`(^|/)account(/|$)`,
			`(^|/)roles?(/|$)`,
			`(^|/)default-roles[-_]`,
			`(^|/)offline[-_]access`,
			`(^|/)uma[-_]authorization`,
			`(^|/)uma[-_]protection`,
		},
	}
}

// LoadRules reads a YAML rules file over DefaultRules. An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	r := DefaultRules()
	if path == "" {
		return r, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("read rules: %w", err)
	}
	if err := yaml.Unmarshal(b, &r); err != nil {
		return r, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if _, err := r.denylist(); err != nil {
		return r, err
	}
	return r, nil
}

func (r Rules) denylist() ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(r.GroupDenylist))
	for _, p := range r.GroupDenylist {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("group denylist %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (r Rules) entitlementNames() []string {
	var out []string
	for _, n := range []string{r.UseEntitlement, r.ManageEntitlement} {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

// rolePattern matches "<entitlement>:<tenant>" or "<entitlement>=<tenant>".
func (r Rules) rolePattern() *regexp.Regexp {
	names := r.entitlementNames()
	if len(names) == 0 {
		return nil
	}
	alt := ""
	for i, n := range names {
		if i > 0 {
			alt += "|"
		}
		alt += regexp.QuoteMeta(n)
	}
	return regexp.MustCompile(`(?i)^(?:` + alt + `)[:=](.+)$`)
}
