package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/macropower/rulepack/pkg/log"
	"github.com/macropower/rulepack/pkg/rule"
	"github.com/macropower/rulepack/pkg/yaml"
)

// Pattern selects rule documents below the root.
const Pattern = "**/*.{yaml,yml}"

// Loader loads rule sets from a directory tree.
type Loader struct {
	validator   *yaml.Validator
	systems     []string
	concurrency int
}

// Option configures a [Loader].
type Option func(*Loader)

// WithAllowedSystems restricts `systeminfo` tags to systems. An empty list
// allows any tag.
func WithAllowedSystems(systems ...string) Option {
	return func(l *Loader) {
		l.systems = systems
	}
}

// WithConcurrency sets how many files are checked at once.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// New creates a new [Loader].
func New(opts ...Option) *Loader {
	l := &Loader{
		validator:   rule.DefaultValidator,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load is a convenience wrapper for [Loader.Load].
func Load(ctx context.Context, root string, opts ...Option) (*rule.Set, error) {
	return New(opts...).Load(ctx, root)
}

// Discover returns the rule files in fsys, in slash form and sorted.
func Discover(fsys fs.FS) ([]string, error) {
	matches, err := doublestar.Glob(fsys, Pattern,
		doublestar.WithFilesOnly(),
		doublestar.WithFailOnIOErrors(),
	)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", Pattern, err)
	}

	slices.Sort(matches)

	return matches, nil
}

type fileResult struct {
	rule *rule.Rule
	id   string
	errs []*ValidationError
}

// Load reads and validates every rule document below root. It returns
// [*Errors] when any document is invalid, [ErrNoRules] when there are no
// documents, and a wrapped I/O error when a file cannot be read.
func (l *Loader) Load(ctx context.Context, root string) (*rule.Set, error) {
	logger := log.WithContext(ctx)

	dir, err := os.OpenRoot(root)
	if err != nil {
		return nil, fmt.Errorf("open rule directory: %w", err)
	}
	defer dir.Close() //nolint:errcheck // Read only.

	fsys := dir.FS()

	files, err := Discover(fsys)
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrNoRules)
	}

	logger.Debug("discovered rule files",
		slog.String("root", root),
		slog.Int("count", len(files)),
	)

	results := make([]fileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err //nolint:wrapcheck // Context error.
			}

			name := filepath.Join(root, filepath.FromSlash(rel))

			src, err := fs.ReadFile(fsys, rel)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}

			r, id, errs := l.check(name, src)
			results[i] = fileResult{rule: r, id: id, errs: errs}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err //nolint:wrapcheck // Already wrapped.
	}

	verr := &Errors{}
	set := &rule.Set{}
	owners := map[string][]string{}

	for i, res := range results {
		verr.Errs = append(verr.Errs, res.errs...)
		if res.id != "" {
			owners[res.id] = append(owners[res.id], filepath.Join(root, filepath.FromSlash(files[i])))
		}
		if res.rule != nil {
			set.Rules = append(set.Rules, res.rule)
		}
	}

	for id, owned := range owners {
		if len(owned) < 2 {
			continue
		}

		for _, file := range owned {
			verr.Errs = append(verr.Errs, &ValidationError{
				File:   file,
				Field:  "id",
				Kind:   KindDuplicateID,
				Detail: fmt.Sprintf("%q is declared in %s", id, strings.Join(owned, ", ")),
			})
		}
	}

	if len(verr.Errs) > 0 {
		verr.sort()
		logger.Debug("rule validation failed", slog.Int("errors", len(verr.Errs)))

		return nil, verr
	}

	logger.Debug("loaded rules", slog.Int("count", set.Len()))

	return set, nil
}

// Check validates a single rule document. It never fails fast: every
// problem found in the document is returned.
func (l *Loader) Check(file string, src []byte) (*rule.Rule, []*ValidationError) {
	r, _, errs := l.check(file, src)

	return r, errs
}

// check validates one document. The returned id is set whenever the document
// declares a well-formed id, even if the document has other errors, so that
// duplicates are still reported.
func (l *Loader) check(file string, src []byte) (*rule.Rule, string, []*ValidationError) {
	c := &checker{file: file, src: src, systems: l.systems}

	var doc any

	err := yaml.NewDecoder(bytes.NewReader(src)).Decode(&doc)
	if errors.Is(err, io.EOF) {
		c.add(KindParse, "", 0, "empty document")
		return nil, "", c.errs
	}
	if err != nil {
		line := 0

		var yerr *yaml.Error
		if errors.As(err, &yerr) {
			line = yerr.Line()
			err = yerr.Err
		}

		c.add(KindParse, "", line, err.Error())

		return nil, "", c.errs
	}

	doc = normalize(doc)
	id := docID(doc)

	violations, err := l.validator.Violations(doc)
	if err != nil {
		c.add(KindSchema, "", 0, err.Error())
		return nil, id, c.errs
	}
	if len(violations) > 0 {
		for _, v := range violations {
			c.addViolation(v)
		}

		return nil, id, c.errs
	}

	r, err := toRule(doc)
	if err != nil {
		c.add(KindSchema, "", 0, err.Error())
		return nil, id, c.errs
	}

	c.checkRule(r)
	if len(c.errs) > 0 {
		return nil, id, c.errs
	}

	return r, id, nil
}

// docID returns the id declared by doc, or "" if it has none or the id is
// malformed.
func docID(doc any) string {
	m, ok := doc.(map[string]any)
	if !ok {
		return ""
	}

	id, ok := m["id"].(string)
	if !ok || !rule.ValidID(id) {
		return ""
	}

	return id
}

// normalize rewrites values the YAML decoder may have typed beyond what a
// JSON schema understands.
func normalize(v any) any {
	switch v := v.(type) {
	case map[string]any:
		for k, item := range v {
			v[k] = normalize(item)
		}

		return v

	case []any:
		for i, item := range v {
			v[i] = normalize(item)
		}

		return v

	case time.Time:
		return v.Format(rule.DateLayout)
	}

	return v
}

// toRule converts a schema-valid document into a [rule.Rule], using the same
// field tags the schema was reflected from.
func toRule(doc any) (*rule.Rule, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()

	r := &rule.Rule{}

	err = dec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode rule: %w", err)
	}

	return r, nil
}
