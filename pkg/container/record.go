package container

import (
	"fmt"

	"github.com/macropower/rulepack/pkg/pattern"
	"github.com/macropower/rulepack/pkg/rule"
)

var (
	riskCodes   = map[rule.Risk]byte{rule.RiskDefault: 0, rule.RiskHigh: 1}
	actionCodes = map[rule.Action]byte{
		rule.ActionDeleteKey:       0,
		rule.ActionDeleteValue:     1,
		rule.ActionDeleteValueData: 2,
	}
)

func riskCode(r rule.Risk) (byte, error) {
	c, ok := riskCodes[r]
	if !ok {
		return 0, fmt.Errorf("unknown risk %q", r)
	}

	return c, nil
}

func riskFromCode(c byte) (rule.Risk, bool) {
	for r, code := range riskCodes {
		if code == c {
			return r, true
		}
	}

	return "", false
}

func actionFromCode(c byte) (rule.Action, bool) {
	for a, code := range actionCodes {
		if code == c {
			return a, true
		}
	}

	return "", false
}

// appendRecord appends the record of r, which must be canonical.
func appendRecord(b []byte, r *rule.Rule) ([]byte, error) {
	risk, err := riskCode(r.Risk)
	if err != nil {
		return nil, err
	}

	b = appendString(b, r.ID)
	b = appendString(b, r.Name)
	b = append(b, risk)
	b = appendString(b, r.Update)
	b = appendString(b, r.Author)
	b = appendString(b, r.Description)

	b = appendCount(b, len(r.SystemInfo))
	for _, s := range r.SystemInfo {
		b = appendString(b, s)
	}

	b = appendCount(b, len(r.Match.Path))
	for _, p := range r.Match.Path {
		b, err = appendPattern(b, p)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", p, err)
		}
	}

	b = appendCount(b, len(r.Match.Registry))
	for _, reg := range r.Match.Registry {
		action, ok := actionCodes[reg.Action]
		if !ok {
			return nil, fmt.Errorf("unknown action %q", reg.Action)
		}

		b, err = appendPattern(b, reg.Path)
		if err != nil {
			return nil, fmt.Errorf("registry path %q: %w", reg.Path, err)
		}

		b = appendString(b, reg.Key)
		b = appendOptString(b, reg.Value)
		b = appendOptString(b, reg.ValueData)
		b = append(b, action)
	}

	return b, nil
}

func appendPattern(b []byte, s string) ([]byte, error) {
	p, err := pattern.Parse(s)
	if err != nil {
		return nil, err //nolint:wrapcheck // Wrapped by caller.
	}

	b = appendCount(b, len(p.Segments))
	for _, seg := range p.Segments {
		b = append(b, byte(seg.Kind))
		b = appendString(b, seg.Value)
	}

	return b, nil
}

func readRecord(buf []byte) (*rule.Rule, error) {
	rd := newReader(buf, ErrCorruptRecord)

	r := &rule.Rule{
		ID:   rd.string(),
		Name: rd.string(),
	}

	riskByte := rd.u8()

	r.Update = rd.string()
	r.Author = rd.string()
	r.Description = rd.string()

	if n := rd.count(); n > 0 {
		r.SystemInfo = make([]string, n)
		for i := range n {
			r.SystemInfo[i] = rd.string()
		}
	}

	if n := rd.count(); n > 0 {
		r.Match.Path = make([]string, n)
		for i := range n {
			r.Match.Path[i] = readPattern(rd)
		}
	}

	if n := rd.count(); n > 0 {
		r.Match.Registry = make([]*rule.RegistryRule, n)
		for i := range n {
			reg := &rule.RegistryRule{
				Path:      readPattern(rd),
				Key:       rd.string(),
				Value:     rd.optString(),
				ValueData: rd.optString(),
			}

			actionByte := rd.u8()
			if rd.err == nil {
				action, ok := actionFromCode(actionByte)
				if !ok {
					rd.fail("unknown action code %d", actionByte)
				}

				reg.Action = action
			}

			r.Match.Registry[i] = reg
		}
	}

	if rd.err == nil && !rule.ValidID(r.ID) {
		rd.fail("invalid id %q", r.ID)
	}

	if rd.err == nil {
		risk, ok := riskFromCode(riskByte)
		if !ok {
			rd.fail("unknown risk code %d", riskByte)
		}

		r.Risk = risk
	}

	err := rd.done()
	if err != nil {
		return nil, err
	}

	return r, nil
}

func readPattern(rd *reader) string {
	n := rd.count()

	segs := make([]pattern.Segment, 0, n)
	for range n {
		kind := pattern.Kind(rd.u8())
		segs = append(segs, pattern.Segment{Kind: kind, Value: rd.string()})
	}

	if rd.err != nil {
		return ""
	}

	p, err := pattern.FromSegments(segs...)
	if err != nil {
		rd.fail("pattern: %v", err)
		return ""
	}

	return p.String()
}
