package container

import (
	"fmt"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/macropower/rulepack/pkg/rule"
)

type encodeConfig struct {
	compression Compression
	level       zstd.EncoderLevel
}

// EncodeOption configures [Encode].
type EncodeOption func(*encodeConfig)

// WithCompression selects the payload compression. Defaults to zstd.
func WithCompression(c Compression) EncodeOption {
	return func(cfg *encodeConfig) {
		cfg.compression = c
	}
}

// WithLevel sets the zstd level. Defaults to [DefaultLevel].
func WithLevel(l zstd.EncoderLevel) EncodeOption {
	return func(cfg *encodeConfig) {
		cfg.level = l
	}
}

// Encode encodes set into a container. The set should already be canonical;
// Encode writes rules in the order given.
func Encode(set *rule.Set, opts ...EncodeOption) ([]byte, error) {
	cfg := encodeConfig{
		compression: CompressionZstd,
		level:       DefaultLevel,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	codec, err := cfg.compression.Codec(cfg.level)
	if err != nil {
		return nil, err
	}

	var payload []byte

	entries := make([]IndexEntry, 0, set.Len())
	seen := make(map[string]struct{}, set.Len())

	for _, r := range set.Rules {
		if !rule.ValidID(r.ID) {
			return nil, fmt.Errorf("rule %q: id must match %s", r.ID, rule.IDPattern)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("rule %q: duplicate id", r.ID)
		}

		seen[r.ID] = struct{}{}

		off := len(payload)

		payload, err = appendRecord(payload, r)
		if err != nil {
			return nil, fmt.Errorf("encode rule %q: %w", r.ID, err)
		}

		entries = append(entries, IndexEntry{
			ID:     r.ID,
			Name:   r.Name,
			Risk:   r.Risk,
			Offset: uint64(off),
			Length: uint64(len(payload) - off),
		})
	}

	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload of %d bytes exceeds %d", len(payload), MaxPayloadSize)
	}

	index, err := appendIndex(nil, entries)
	if err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}

	stored, err := codec.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}

	h := Header{
		Version:     Version,
		Compression: cfg.compression,
		RuleCount:   uint32(len(entries)), //nolint:gosec // Bounded by payload size.
		IndexLen:    uint32(len(index)),   //nolint:gosec // Bounded by payload size.
		PayloadLen:  uint64(len(payload)),
		StoredLen:   uint64(len(stored)),
		PayloadSum:  xxhash.Sum64(payload),
		IndexSum:    xxhash.Sum64(index),
	}

	out, err := h.AppendBinary(make([]byte, 0, HeaderSize+len(index)+len(stored)))
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	out = append(out, index...)
	out = append(out, stored...)

	return out, nil
}

// Container is a decoded container whose payload has been verified.
// Records are decoded on demand.
type Container struct {
	payload []byte
	Index   []IndexEntry
	Header  Header
}

// Open verifies data and returns a [Container]. The header, index checksum,
// stored length, decompressed length and payload checksum are all checked
// before any record is trusted.
func Open(data []byte) (*Container, error) {
	h, entries, err := ReadIndex(data)
	if err != nil {
		return nil, err
	}

	start := HeaderSize + uint64(h.IndexLen)
	stored := data[start:]

	switch {
	case uint64(len(stored)) < h.StoredLen:
		return nil, fmt.Errorf("%w: payload needs %d bytes, have %d", ErrTruncated, h.StoredLen, len(stored))
	case uint64(len(stored)) > h.StoredLen:
		return nil, fmt.Errorf("%w: %d bytes after payload", ErrLengthMismatch, uint64(len(stored))-h.StoredLen)
	}

	codec, err := h.Compression.Codec(DefaultLevel)
	if err != nil {
		return nil, err
	}

	payload, err := codec.Decompress(stored, h.PayloadLen)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}

	if sum := xxhash.Sum64(payload); sum != h.PayloadSum {
		return nil, fmt.Errorf("%w: payload checksum %016x, header declares %016x", ErrChecksumMismatch, sum, h.PayloadSum)
	}

	return &Container{Header: h, Index: entries, payload: payload}, nil
}

// Record decodes the rule with the given id.
func (c *Container) Record(id string) (*rule.Rule, error) {
	i := slices.IndexFunc(c.Index, func(e IndexEntry) bool {
		return e.ID == id
	})
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	return c.record(c.Index[i])
}

func (c *Container) record(e IndexEntry) (*rule.Rule, error) {
	r, err := readRecord(c.payload[e.Offset : e.Offset+e.Length])
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", e.ID, err)
	}
	if r.ID != e.ID || r.Name != e.Name || r.Risk != e.Risk {
		return nil, fmt.Errorf("%w: rule %q does not match its index entry", ErrCorruptRecord, e.ID)
	}

	return r, nil
}

// Rules decodes every record in index order.
func (c *Container) Rules() (*rule.Set, error) {
	set := &rule.Set{Rules: make([]*rule.Rule, 0, len(c.Index))}
	for _, e := range c.Index {
		r, err := c.record(e)
		if err != nil {
			return nil, err
		}

		set.Rules = append(set.Rules, r)
	}

	return set, nil
}

// Decode verifies data and decodes every rule.
func Decode(data []byte) (*rule.Set, error) {
	c, err := Open(data)
	if err != nil {
		return nil, err
	}

	return c.Rules()
}
