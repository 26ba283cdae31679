package container

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compression is the payload compression tag stored in the header. Tag
// values are fixed for a format version.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

// DefaultLevel is the zstd level used when none is given.
const DefaultLevel = zstd.SpeedBetterCompression

var (
	ErrUnknownCompression = errors.New("unknown compression")
	ErrUnknownLevel       = errors.New("unknown compression level")

	// Compressions lists the names accepted by [ParseCompression].
	Compressions = []string{CompressionNone.String(), CompressionZstd.String()}

	// Levels lists the names accepted by [ParseLevel].
	Levels = []string{"fastest", "default", "better", "best"}
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	}

	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// Known reports whether c is a tag of the current format version.
func (c Compression) Known() bool {
	return c == CompressionNone || c == CompressionZstd
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Compression) UnmarshalText(b []byte) error {
	v, err := ParseCompression(string(b))
	if err != nil {
		return err
	}

	*c = v

	return nil
}

// ParseCompression parses a compression name.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, s)
}

// ParseLevel parses a zstd level name. An empty name is [DefaultLevel].
func ParseLevel(s string) (zstd.EncoderLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultLevel, nil
	}

	ok, lvl := zstd.EncoderLevelFromString(s)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}

	return lvl, nil
}

// Codec compresses and decompresses payloads.
type Codec interface {
	Compress(src []byte) ([]byte, error)
	// Decompress returns the decompressed payload, failing if it would
	// exceed size bytes.
	Decompress(src []byte, size uint64) ([]byte, error)
}

// Codec returns the [Codec] for c. The level only applies to compression.
//
//nolint:ireturn // Codecs are selected at runtime.
func (c Compression) Codec(level zstd.EncoderLevel) (Codec, error) {
	switch c {
	case CompressionNone:
		return noneCodec{}, nil
	case CompressionZstd:
		return zstdCodec{level: level}, nil
	}

	return nil, fmt.Errorf("%w: tag %d", ErrUnsupportedCompression, uint8(c))
}

type noneCodec struct{}

func (noneCodec) Compress(src []byte) ([]byte, error) {
	return src, nil
}

func (noneCodec) Decompress(src []byte, size uint64) ([]byte, error) {
	if uint64(len(src)) != size {
		return nil, fmt.Errorf("%w: stored %d bytes, declared %d", ErrLengthMismatch, len(src), size)
	}

	return src, nil
}

// minDecoderMemory keeps the zstd window limit above its 1 KiB minimum.
const minDecoderMemory = 1 << 20

type zstdCodec struct {
	level zstd.EncoderLevel
}

// Compress writes a single frame. The encoder is single threaded so the same
// input always yields the same bytes.
func (z zstdCodec) Compress(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(z.level),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close() //nolint:errcheck // EncodeAll does not use the stream.

	return enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

func (zstdCodec) Decompress(src []byte, size uint64) ([]byte, error) {
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(max(size, minDecoderMemory)),
	)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(src, make([]byte, 0, min(size, minDecoderMemory)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}
	if uint64(len(out)) != size {
		return nil, fmt.Errorf("%w: decompressed %d bytes, declared %d", ErrLengthMismatch, len(out), size)
	}

	return out, nil
}
