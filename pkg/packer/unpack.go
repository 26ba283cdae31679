package packer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/macropower/rulepack/api"
	"github.com/macropower/rulepack/pkg/container"
	"github.com/macropower/rulepack/pkg/expr"
	"github.com/macropower/rulepack/pkg/log"
	"github.com/macropower/rulepack/pkg/rule"
)

// ErrUnsafeID is returned by [Unpack] for a rule id that cannot be used as a
// file name inside the output directory.
var ErrUnsafeID = errors.New("id is not a safe file name")

// UnpackOptions configures [Unpack].
type UnpackOptions struct {
	// Filter selects which rules are written. Nil writes every rule.
	Filter *expr.Filter
	Input  string
	Output string
}

// UnpackResult lists the files written by [Unpack].
type UnpackResult struct {
	Files []string
	Total int
}

// Unpack decodes the container at opts.Input and writes every selected rule
// to `<opts.Output>/<id>.yaml`.
func Unpack(ctx context.Context, opts UnpackOptions) (*UnpackResult, error) {
	logger := log.WithContext(ctx)

	data, err := api.ReadFile(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.Input, err)
	}

	set, err := container.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", opts.Input, err)
	}

	err = os.MkdirAll(opts.Output, 0o755)
	if err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	res := &UnpackResult{Total: set.Len()}

	for _, r := range set.Rules {
		ok, err := opts.Filter.Match(expr.VarsFromRule(r))
		if err != nil {
			return nil, err //nolint:wrapcheck // Names the filter.
		}
		if !ok {
			continue
		}

		path, err := unpackPath(opts.Output, r.ID)
		if err != nil {
			return nil, err
		}

		b, err := MarshalRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.ID, err)
		}

		err = os.WriteFile(path, b, 0o644) //nolint:gosec // G306: Rule files are not secret.
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}

		res.Files = append(res.Files, path)
	}

	logger.Info("unpacked rules",
		slog.String("output", opts.Output),
		slog.Int("written", len(res.Files)),
		slog.Int("total", res.Total),
	)

	return res, nil
}

// unpackPath returns the file a rule with the given id is written to.
func unpackPath(dir, id string) (string, error) {
	name := id + ".yaml"
	if !rule.ValidID(id) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("rule %q: %w", id, ErrUnsafeID)
	}

	return filepath.Join(dir, name), nil
}

// MarshalRule renders r as a YAML rule document.
func MarshalRule(r *rule.Rule) ([]byte, error) {
	return api.MarshalYAML(r) //nolint:wrapcheck // Already wrapped.
}
