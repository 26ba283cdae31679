// Package canon puts rule sets into canonical form, so that the same rules
// always encode to the same bytes.
package canon

import (
	"cmp"
	"slices"
	"strings"

	"github.com/macropower/rulepack/pkg/pattern"
	"github.com/macropower/rulepack/pkg/rule"
)

// Canonicalize returns a canonical copy of set. The input is not modified.
//
// Rules are sorted by id, descriptive fields are trimmed, systeminfo tags are
// trimmed and deduplicated keeping the first occurrence, patterns are
// re-rendered from their segments, and registry defaults are filled in.
// Fields the cleanup engine matches against (patterns, key, value and
// value_data) keep their whitespace. Canonicalize is idempotent.
func Canonicalize(set *rule.Set) *rule.Set {
	out := set.Clone()
	if out == nil {
		return &rule.Set{}
	}

	for _, r := range out.Rules {
		Rule(r)
	}

	slices.SortStableFunc(out.Rules, func(a, b *rule.Rule) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return out
}

// Rule canonicalizes r in place.
func Rule(r *rule.Rule) {
	r.ID = strings.TrimSpace(r.ID)
	r.Name = strings.TrimSpace(r.Name)
	r.Update = strings.TrimSpace(r.Update)
	r.Author = strings.TrimSpace(r.Author)
	r.Description = strings.TrimSpace(r.Description)
	r.SystemInfo = systems(r.SystemInfo)

	if r.Risk == "" {
		r.Risk = rule.RiskDefault
	}

	var paths []string
	for _, p := range r.Match.Path {
		paths = append(paths, Pattern(p))
	}

	r.Match.Path = paths

	if len(r.Match.Registry) == 0 {
		r.Match.Registry = nil
	}

	for _, reg := range r.Match.Registry {
		Registry(reg)
	}
}

// Registry canonicalizes reg in place.
func Registry(reg *rule.RegistryRule) {
	reg.Path = Pattern(reg.Path)

	if reg.Key == "" {
		reg.Key = rule.DefaultKey
	}

	if reg.Action == "" {
		reg.Action = rule.ActionDeleteKey
	}
}

// Pattern returns the canonical text of a path pattern. Patterns that do not
// scan are returned unchanged.
func Pattern(s string) string {
	p, err := pattern.Parse(s)
	if err != nil {
		return s
	}

	return p.String()
}

func systems(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || slices.Contains(out, s) {
			continue
		}

		out = append(out, s)
	}

	return out
}
