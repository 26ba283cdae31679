package packer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/klauspost/compress/zstd"

	"github.com/macropower/rulepack/pkg/canon"
	"github.com/macropower/rulepack/pkg/container"
	"github.com/macropower/rulepack/pkg/loader"
	"github.com/macropower/rulepack/pkg/log"
)

const (
	DefaultPackInput    = "./rules"
	DefaultPackOutput   = "./dist/rules.bin"
	DefaultUnpackOutput = "./rules_unpacked"
)

// PackOptions configures [Pack].
type PackOptions struct {
	Input          string
	Output         string
	AllowedSystems []string
	Compression    container.Compression
	// Level is the zstd level. Zero means [container.DefaultLevel].
	Level zstd.EncoderLevel
}

// PackResult describes a written container.
type PackResult struct {
	Output      string
	Rules       int
	PayloadSize uint64
	StoredSize  uint64
	FileSize    int
}

// Pack loads the rule tree at opts.Input and writes its container to
// opts.Output. Validation failures are returned as [*loader.Errors] and
// leave opts.Output untouched.
func Pack(ctx context.Context, opts PackOptions) (*PackResult, error) {
	logger := log.WithContext(ctx)

	set, err := loader.Load(ctx, opts.Input, loader.WithAllowedSystems(opts.AllowedSystems...))
	if err != nil {
		return nil, err //nolint:wrapcheck // Loader errors carry their paths.
	}

	set = canon.Canonicalize(set)

	level := opts.Level
	if level == 0 {
		level = container.DefaultLevel
	}

	data, err := container.Encode(set,
		container.WithCompression(opts.Compression),
		container.WithLevel(level),
	)
	if err != nil {
		return nil, fmt.Errorf("encode container: %w", err)
	}

	h, err := container.ReadHeader(data)
	if err != nil {
		return nil, fmt.Errorf("read back header: %w", err)
	}

	err = WriteFileAtomic(opts.Output, data, 0o644)
	if err != nil {
		return nil, err
	}

	res := &PackResult{
		Output:      opts.Output,
		Rules:       set.Len(),
		PayloadSize: h.PayloadLen,
		StoredSize:  h.StoredLen,
		FileSize:    len(data),
	}

	logger.Info("packed rules",
		slog.String("output", res.Output),
		slog.Int("rules", res.Rules),
		slog.String("compression", opts.Compression.String()),
		slog.Int("bytes", res.FileSize),
	)

	return res, nil
}
