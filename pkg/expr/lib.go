package expr

import (
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/macropower/rulepack/pkg/pattern"
	"github.com/macropower/rulepack/pkg/rule"
)

// lib declares the filter variables and functions. With indexOnly set, only
// the variables stored in a container index are declared.
type lib struct {
	indexOnly bool
}

func (l lib) CompileOptions() []cel.EnvOption {
	opts := []cel.EnvOption{
		ext.Strings(),
		ext.Lists(),

		cel.Variable("id", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("risk", cel.StringType),
	}
	if !l.indexOnly {
		opts = append(opts,
			cel.Variable("update", cel.StringType),
			cel.Variable("systeminfo", cel.ListType(cel.StringType)),
			cel.Variable("paths", cel.ListType(cel.StringType)),
			cel.Variable("registry", cel.ListType(cel.StringType)),
		)
	}

	return append(opts,
		// `date` parses a YYYY-MM-DD date.
		// Example: date(update) >= date("2025-01-01").
		cel.Function("date",
			cel.Overload("date_string", []*cel.Type{cel.StringType}, cel.TimestampType,
				cel.UnaryBinding(func(s ref.Val) ref.Val {
					str, ok := s.(types.String)
					if !ok {
						return types.NewErr("date: invalid string value")
					}

					t, err := time.Parse(rule.DateLayout, string(str))
					if err != nil {
						return types.NewErr("date: %v", err)
					}

					return types.Timestamp{Time: t}
				}),
			),
		),

		// `isLiteral` reports whether a pattern has no regex fragments.
		// Example: paths.all(p, isLiteral(p)).
		cel.Function("isLiteral",
			cel.Overload("is_literal_string", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(s ref.Val) ref.Val {
					str, ok := s.(types.String)
					if !ok {
						return types.NewErr("isLiteral: invalid string value")
					}

					p, err := pattern.Parse(string(str))
					if err != nil {
						return types.NewErr("isLiteral: %v", err)
					}

					return types.Bool(p.IsLiteral())
				}),
			),
		),

		// `fragments` returns the regex fragments of a pattern.
		// Example: paths.exists(p, fragments(p).exists(f, f.contains(".log"))).
		cel.Function("fragments",
			cel.Overload("fragments_string", []*cel.Type{cel.StringType}, cel.ListType(cel.StringType),
				cel.UnaryBinding(func(s ref.Val) ref.Val {
					str, ok := s.(types.String)
					if !ok {
						return types.NewErr("fragments: invalid string value")
					}

					p, err := pattern.Parse(string(str))
					if err != nil {
						return types.NewErr("fragments: %v", err)
					}

					return types.NewStringList(types.DefaultTypeAdapter, nonNil(p.Regexes()))
				}),
			),
		),
	)
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}
