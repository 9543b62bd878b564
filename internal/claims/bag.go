package claims

import (
	"fmt"
	"strings"

	jmes "github.com/jmespath/go-jmespath"
)

// ClaimBag is the merged view of every claim source for one sign-in.
// Lookups go through explicit paths (see Path) instead of ad hoc map digging.
type ClaimBag map[string]any

// Nested sub-objects some providers use for custom attributes.
const (
	Extra      = "extra"
	Attributes = "attributes"
)

// Path builds a quoted JMESPath expression, so keys with dashes or dots are safe.
func Path(keys ...string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = `"` + strings.ReplaceAll(k, `"`, `\"`) + `"`
	}
	return strings.Join(quoted, ".")
}

// Variants returns the top-level, extra and attributes paths for key, in that order.
func Variants(key string) []string {
	return []string{Path(key), Path(Extra, key), Path(Attributes, key)}
}

// Lookup evaluates a JMESPath expression. Invalid expressions yield nil.
func (b ClaimBag) Lookup(expr string) any {
	if len(b) == 0 {
		return nil
	}
	v, err := jmes.Search(expr, map[string]any(b))
	if err != nil {
		return nil
	}
	return v
}

// String returns the first non-empty scalar found at the given paths.
// List values contribute their first non-empty element (attribute claims are often lists).
func (b ClaimBag) String(paths ...string) string {
	for _, p := range paths {
		if s := firstString(b.Lookup(p)); s != "" {
			return s
		}
	}
	return ""
}

// Strings returns the string elements found at path. A scalar string is returned as a
// one-element list; use SplitList for delimited values.
func (b ClaimBag) Strings(path string) []string {
	return toStrings(b.Lookup(path))
}

// Map returns the object at path, or nil.
func (b ClaimBag) Map(path string) map[string]any {
	m, _ := b.Lookup(path).(map[string]any)
	return m
}

// Raw returns the top-level value stored under key, without path evaluation.
func (b ClaimBag) Raw(key string) any { return b[key] }

// Merge folds sources into one bag. Later sources win on key collision; nil sources are skipped.
func Merge(sources ...map[string]any) ClaimBag {
	out := ClaimBag{}
	for _, src := range sources {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}

// SplitList splits a delimited entitlement string on ';' or ',', trimming and dropping empties.
func SplitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, it := range t {
			if s := firstString(it); s != "" {
				return s
			}
		}
	case []string:
		for _, it := range t {
			if s := strings.TrimSpace(it); s != "" {
				return s
			}
		}
	case float64, int, int64, bool:
		return fmt.Sprint(t)
	}
	return ""
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []string:
		out := make([]string, 0, len(t))
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, it := range t {
			if s, ok := it.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	}
	return nil
}
