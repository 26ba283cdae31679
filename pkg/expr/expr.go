package expr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/macropower/rulepack/pkg/rule"
)

// ErrNotBool is returned when a filter does not evaluate to a bool.
var ErrNotBool = errors.New("filter must evaluate to a bool")

// Protect CEL environment creation and compilation from concurrent access.
var celMutex sync.Mutex

// Environment provides a thread-safe wrapper around a [*cel.Env].
type Environment struct {
	env *cel.Env
}

// NewEnvironment creates a new [Environment] with the rule variables and
// functions declared.
func NewEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	return newEnvironment(lib{}, opts...)
}

// NewIndexEnvironment creates a new [Environment] that declares only `id`,
// `name` and `risk`, the values available from a container index.
func NewIndexEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	return newEnvironment(lib{indexOnly: true}, opts...)
}

func newEnvironment(l lib, opts ...cel.EnvOption) (*Environment, error) {
	env, err := createEnvironment(l, opts...)
	if err != nil {
		return nil, err
	}

	return &Environment{env: env}, nil
}

// MustNewEnvironment creates a new [Environment] and panics on error.
func MustNewEnvironment(opts ...cel.EnvOption) *Environment {
	env, err := NewEnvironment(opts...)
	if err != nil {
		panic(err)
	}

	return env
}

func createEnvironment(l lib, opts ...cel.EnvOption) (*cel.Env, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	opts = append(opts, cel.Lib(l))

	celEnv, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return celEnv, nil
}

// Compile compiles a CEL expression that must evaluate to a bool.
//
//nolint:ireturn // Following CEL's function signature.
func (e *Environment) Compile(expression string) (cel.Program, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w, got %s", ErrNotBool, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	return program, nil
}

// Vars are the values a [Filter] is evaluated against.
type Vars struct {
	ID         string
	Name       string
	Risk       rule.Risk
	Update     string
	SystemInfo []string
	Paths      []string
	Registry   []string
}

// VarsFromRule returns the [Vars] of r.
func VarsFromRule(r *rule.Rule) Vars {
	v := Vars{
		ID:         r.ID,
		Name:       r.Name,
		Risk:       r.Risk,
		Update:     r.Update,
		SystemInfo: r.SystemInfo,
		Paths:      r.Match.Path,
	}
	for _, reg := range r.Match.Registry {
		v.Registry = append(v.Registry, reg.Path)
	}

	return v
}

func (v Vars) activation() map[string]any {
	return map[string]any{
		"id":         v.ID,
		"name":       v.Name,
		"risk":       string(v.Risk),
		"update":     v.Update,
		"systeminfo": nonNil(v.SystemInfo),
		"paths":      nonNil(v.Paths),
		"registry":   nonNil(v.Registry),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}

var (
	defaultEnv     *Environment
	defaultEnvErr  error
	defaultEnvOnce sync.Once

	indexEnv     *Environment
	indexEnvErr  error
	indexEnvOnce sync.Once
)

// Filter selects rules with a compiled CEL expression. A nil Filter matches
// every rule.
type Filter struct {
	program    cel.Program
	expression string
}

// NewFilter compiles expression. An empty expression returns a nil Filter.
func NewFilter(expression string) (*Filter, error) {
	if expression == "" {
		return nil, nil //nolint:nilnil // A nil filter matches everything.
	}

	defaultEnvOnce.Do(func() {
		defaultEnv, defaultEnvErr = NewEnvironment()
	})
	if defaultEnvErr != nil {
		return nil, defaultEnvErr
	}

	return newFilter(defaultEnv, expression)
}

// NewIndexFilter is like [NewFilter], but the expression may only use the
// variables of [NewIndexEnvironment]. Referring to any other variable is a
// compile error.
func NewIndexFilter(expression string) (*Filter, error) {
	if expression == "" {
		return nil, nil //nolint:nilnil // A nil filter matches everything.
	}

	indexEnvOnce.Do(func() {
		indexEnv, indexEnvErr = NewIndexEnvironment()
	})
	if indexEnvErr != nil {
		return nil, indexEnvErr
	}

	return newFilter(indexEnv, expression)
}

func newFilter(env *Environment, expression string) (*Filter, error) {
	program, err := env.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", expression, err)
	}

	return &Filter{expression: expression, program: program}, nil
}

// Match evaluates the filter against v.
func (f *Filter) Match(v Vars) (bool, error) {
	if f == nil {
		return true, nil
	}

	result, _, err := f.program.Eval(v.activation())
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q: %w", f.expression, err)
	}

	b, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q: %w, got %T", f.expression, ErrNotBool, result.Value())
	}

	return b, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}

	return f.expression
}
