package container

import (
	"encoding/binary"
	"fmt"
)

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendOptString(b []byte, s *string) []byte {
	if s == nil {
		return append(b, 0)
	}

	return appendString(append(b, 1), *s)
}

// reader consumes a byte slice. The first failure sticks; later reads
// return zero values.
type reader struct {
	err  error
	kind error // Sentinel wrapped by failures.
	buf  []byte
	off  int
}

func newReader(buf []byte, kind error) *reader {
	return &reader{buf: buf, kind: kind}
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s", r.kind, fmt.Sprintf(format, args...))
	}
}

func (r *reader) remaining() int {
	return len(r.buf) - r.off
}

func (r *reader) uvarint() uint64 {
	if r.err != nil {
		return 0
	}

	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		r.fail("bad varint at offset %d", r.off)
		return 0
	}

	r.off += n

	return v
}

func (r *reader) u8() byte {
	if r.err != nil {
		return 0
	}
	if r.remaining() < 1 {
		r.fail("unexpected end at offset %d", r.off)
		return 0
	}

	b := r.buf[r.off]
	r.off++

	return b
}

func (r *reader) string() string {
	n := r.uvarint()
	if r.err != nil {
		return ""
	}
	if n > uint64(r.remaining()) {
		r.fail("string of %d bytes at offset %d overruns input", n, r.off)
		return ""
	}

	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)

	return s
}

func (r *reader) optString() *string {
	switch r.u8() {
	case 0:
		return nil
	case 1:
		s := r.string()
		return &s
	}

	r.fail("bad presence byte at offset %d", r.off-1)

	return nil
}

// count reads a list length. Every item takes at least one byte, which
// bounds allocations by the input size.
func (r *reader) count() int {
	n := r.uvarint()
	if r.err != nil {
		return 0
	}
	if n > uint64(r.remaining()) {
		r.fail("count %d at offset %d overruns input", n, r.off)
		return 0
	}

	return int(n)
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", r.kind, r.remaining())
	}

	return nil
}

func appendCount(b []byte, n int) []byte {
	return binary.AppendUvarint(b, uint64(n))
}
