package loader

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/macropower/rulepack/pkg/pattern"
	"github.com/macropower/rulepack/pkg/rule"
	"github.com/macropower/rulepack/pkg/yaml"
)

// checker collects the problems of one rule document.
type checker struct {
	file    string
	src     []byte
	systems []string
	errs    []*ValidationError
}

func (c *checker) add(k Kind, field string, line int, detail string) {
	c.errs = append(c.errs, &ValidationError{
		File:   c.file,
		Field:  field,
		Kind:   k,
		Detail: detail,
		Line:   line,
	})
}

// line resolves the source line of the node at loc, walking up to the
// closest existing parent.
func (c *checker) line(loc []string) int {
	for i := len(loc); i > 0; i-- {
		v := yaml.Violation{Location: loc[:i]}

		n := yaml.NewError(errors.New(""), yaml.WithPath(v.Path()), yaml.WithSource(c.src)).Line()
		if n > 0 {
			return n
		}
	}

	return 0
}

func (c *checker) addViolation(v yaml.Violation) {
	field := v.Field()

	var k Kind

	switch {
	case v.Keyword == "required":
		k = KindMissingField
	case field == "name" && v.Keyword == "minLength":
		k = KindMissingField
	case field == "id" && v.Keyword == "pattern":
		k = KindInvalidID
	case field == "risk" && v.Keyword == "enum":
		k = KindInvalidRisk
	case strings.HasSuffix(field, ".action") && v.Keyword == "enum":
		k = KindInvalidAction
	default:
		k = KindSchema
	}

	c.add(k, field, c.line(v.Location), v.Message)
}

func (c *checker) addAt(k Kind, loc []string, detail string) {
	c.add(k, yaml.Violation{Location: loc}.Field(), c.line(loc), detail)
}

func (c *checker) checkRule(r *rule.Rule) {
	_, err := r.UpdateTime()
	if err != nil {
		c.addAt(KindInvalidDate, []string{"update"}, fmt.Sprintf("%q is not a YYYY-MM-DD date", r.Update))
	}

	for i, sys := range r.SystemInfo {
		if len(c.systems) > 0 && !slices.Contains(c.systems, strings.TrimSpace(sys)) {
			c.addAt(KindUnknownSystem, []string{"systeminfo", strconv.Itoa(i)}, fmt.Sprintf("%q is not an allowed system", sys))
		}
	}

	for i, p := range r.Match.Path {
		c.checkPattern([]string{"match", "path", strconv.Itoa(i)}, p)
	}

	for i, reg := range r.Match.Registry {
		loc := []string{"match", "registry", strconv.Itoa(i)}

		c.checkPattern(append(slices.Clone(loc), "path"), reg.Path)

		action := reg.Action
		if action == "" {
			action = rule.ActionDeleteKey
		}

		switch {
		case action.NeedsValue() && reg.Value == nil:
			c.addAt(KindActionMismatch, loc, fmt.Sprintf("action %s requires value", action))
		case !action.NeedsValue() && reg.Value != nil:
			c.addAt(KindActionMismatch, loc, fmt.Sprintf("action %s does not accept value", action))
		}
	}
}

func (c *checker) checkPattern(loc []string, s string) {
	if strings.TrimSpace(s) == "" {
		c.addAt(KindSchema, loc, "empty pattern")
		return
	}

	_, err := pattern.Compile(s)
	if err == nil {
		return
	}

	k := KindSchema

	switch {
	case errors.Is(err, pattern.ErrUnbalanced):
		k = KindUnbalancedDelimiter
	case errors.Is(err, pattern.ErrEmptyFragment):
		k = KindEmptyFragment
	case errors.Is(err, pattern.ErrInvalidRegex):
		k = KindInvalidRegex
	}

	c.addAt(k, loc, err.Error())
}
