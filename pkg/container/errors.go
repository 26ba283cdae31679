package container

import (
	"errors"
	"fmt"
)

// ErrFormat is wrapped by every error caused by malformed container bytes.
var ErrFormat = errors.New("invalid container")

var (
	ErrTruncated              = fmt.Errorf("%w: truncated input", ErrFormat)
	ErrBadMagic               = fmt.Errorf("%w: bad magic", ErrFormat)
	ErrUnsupportedVersion     = fmt.Errorf("%w: unsupported format version", ErrFormat)
	ErrUnsupportedCompression = fmt.Errorf("%w: unsupported compression", ErrFormat)
	ErrReservedFlags          = fmt.Errorf("%w: reserved flags set", ErrFormat)
	ErrLengthMismatch         = fmt.Errorf("%w: length mismatch", ErrFormat)
	ErrChecksumMismatch       = fmt.Errorf("%w: checksum mismatch", ErrFormat)
	ErrCorruptIndex           = fmt.Errorf("%w: corrupt index", ErrFormat)
	ErrCorruptPayload         = fmt.Errorf("%w: corrupt payload", ErrFormat)
	ErrCorruptRecord          = fmt.Errorf("%w: corrupt record", ErrFormat)
)

// ErrNotFound is returned by [Container.Record] for unknown ids.
var ErrNotFound = errors.New("rule not found")
