package packer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/macropower/rulepack/pkg/container"
	"github.com/macropower/rulepack/pkg/expr"
	"github.com/macropower/rulepack/pkg/log"
	"github.com/macropower/rulepack/pkg/rule"
)

// InfoOptions configures [Info].
type InfoOptions struct {
	// Filter narrows the listed rules. Build it with [expr.NewIndexFilter],
	// since only id, name and risk are bound.
	Filter *expr.Filter
	Input  string
	// Verify additionally decodes the payload and every record.
	Verify bool
}

// RuleSummary describes one index entry.
type RuleSummary struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Risk rule.Risk `json:"risk"`
	Size uint64    `json:"size"`
}

// Summary describes a container.
type Summary struct {
	Path            string        `json:"path"`
	Compression     string        `json:"compression"`
	PayloadChecksum string        `json:"payloadChecksum"`
	IndexChecksum   string        `json:"indexChecksum"`
	Rules           []RuleSummary `json:"rules"`
	PayloadSize     uint64        `json:"payloadSize"`
	StoredSize      uint64        `json:"storedSize"`
	FileSize        int64         `json:"fileSize"`
	RuleCount       uint32        `json:"ruleCount"`
	Version         uint16        `json:"version"`
	Verified        bool          `json:"verified"`
}

// Info summarizes the container at opts.Input. Only the header and index are
// read unless opts.Verify is set.
func Info(ctx context.Context, opts InfoOptions) (*Summary, error) {
	logger := log.WithContext(ctx)

	h, entries, size, err := readIndexFile(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.Input, err)
	}

	s := &Summary{
		Path:            opts.Input,
		Version:         h.Version,
		Compression:     h.Compression.String(),
		RuleCount:       h.RuleCount,
		PayloadSize:     h.PayloadLen,
		StoredSize:      h.StoredLen,
		FileSize:        size,
		PayloadChecksum: fmt.Sprintf("%016x", h.PayloadSum),
		IndexChecksum:   fmt.Sprintf("%016x", h.IndexSum),
		Rules:           []RuleSummary{},
	}

	if opts.Verify {
		data, err := os.ReadFile(opts.Input)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", opts.Input, err)
		}

		_, err = container.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", opts.Input, err)
		}

		s.Verified = true
	}

	for _, e := range entries {
		ok, err := opts.Filter.Match(expr.Vars{ID: e.ID, Name: e.Name, Risk: e.Risk})
		if err != nil {
			return nil, err //nolint:wrapcheck // Names the filter.
		}
		if !ok {
			continue
		}

		s.Rules = append(s.Rules, RuleSummary{ID: e.ID, Name: e.Name, Risk: e.Risk, Size: e.Length})
	}

	logger.Debug("read container index",
		slog.String("path", opts.Input),
		slog.Int("rules", len(entries)),
		slog.Bool("verified", s.Verified),
	)

	return s, nil
}

// readIndexFile reads only the header and index bytes of the file at path.
func readIndexFile(path string) (container.Header, []container.IndexEntry, int64, error) {
	var h container.Header

	f, err := os.Open(path) //nolint:gosec // G304: Path from user input.
	if err != nil {
		return h, nil, 0, fmt.Errorf("open: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read only.

	st, err := f.Stat()
	if err != nil {
		return h, nil, 0, fmt.Errorf("stat: %w", err)
	}
	if !st.Mode().IsRegular() {
		return h, nil, 0, fmt.Errorf("%s: not a regular file", path)
	}

	head := make([]byte, container.HeaderSize)

	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return h, nil, 0, fmt.Errorf("read header: %w", err)
	}

	h, err = container.ReadHeader(head[:n])
	if err != nil {
		return h, nil, 0, err //nolint:wrapcheck // Format errors are returned as is.
	}

	total := int64(container.HeaderSize) + int64(h.IndexLen)
	if total > st.Size() {
		return h, nil, 0, fmt.Errorf("%w: index needs %d bytes, file has %d", container.ErrTruncated, h.IndexLen, st.Size()-container.HeaderSize)
	}

	buf := make([]byte, total)
	copy(buf, head)

	_, err = io.ReadFull(f, buf[container.HeaderSize:])
	if err != nil {
		return h, nil, 0, fmt.Errorf("read index: %w", err)
	}

	_, entries, err := container.ReadIndex(buf)
	if err != nil {
		return h, nil, 0, err //nolint:wrapcheck // Format errors are returned as is.
	}

	return h, entries, st.Size(), nil
}
