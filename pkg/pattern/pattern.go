package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	OpenDelim  = '<'
	CloseDelim = '>'
)

var (
	ErrUnbalanced    = errors.New("unbalanced delimiter")
	ErrEmptyFragment = errors.New("empty regex fragment")
	ErrInvalidRegex  = errors.New("invalid regex fragment")
	ErrUnknownKind   = errors.New("unknown segment kind")
)

// Kind identifies the type of a [Segment].
type Kind uint8

const (
	KindLiteral Kind = iota
	KindRegex
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindRegex:
		return "regex"
	}

	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Segment is a run of literal text or a single regex fragment.
type Segment struct {
	Value string
	Kind  Kind
}

// Error describes a pattern that could not be scanned or compiled.
type Error struct {
	Err      error  // One of the package sentinel errors.
	Cause    error  // Underlying regexp error, if any.
	Fragment string // Offending fragment, if any.
	Pos      int    // Byte offset in the pattern.
}

func (e *Error) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%v <%s> at offset %d: %v", e.Err, e.Fragment, e.Pos, e.Cause)
	case e.Fragment != "":
		return fmt.Sprintf("%v %q at offset %d", e.Err, e.Fragment, e.Pos)
	}

	return fmt.Sprintf("%v at offset %d", e.Err, e.Pos)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Pattern is a scanned pattern string.
type Pattern struct {
	Segments []Segment
}

// Parse scans s into literal and regex segments. It does not compile the
// regex fragments, see [Compile] for that.
func Parse(s string) (*Pattern, error) {
	p := &Pattern{}

	start, open := 0, -1
	for i := range len(s) {
		switch s[i] {
		case OpenDelim:
			if open >= 0 {
				return nil, &Error{Err: ErrUnbalanced, Fragment: "<", Pos: i}
			}
			if i > start {
				p.Segments = append(p.Segments, Segment{Kind: KindLiteral, Value: s[start:i]})
			}

			open = i

		case CloseDelim:
			if open < 0 {
				return nil, &Error{Err: ErrUnbalanced, Fragment: ">", Pos: i}
			}
			if i == open+1 {
				return nil, &Error{Err: ErrEmptyFragment, Pos: open}
			}

			p.Segments = append(p.Segments, Segment{Kind: KindRegex, Value: s[open+1 : i]})
			open = -1
			start = i + 1
		}
	}

	if open >= 0 {
		return nil, &Error{Err: ErrUnbalanced, Fragment: "<", Pos: open}
	}
	if start < len(s) {
		p.Segments = append(p.Segments, Segment{Kind: KindLiteral, Value: s[start:]})
	}

	return p, nil
}

// Compile scans s and checks that every regex fragment compiles.
func Compile(s string) (*Pattern, error) {
	p, err := Parse(s)
	if err != nil {
		return nil, err
	}

	pos := 0
	for _, seg := range p.Segments {
		if seg.Kind == KindRegex {
			_, err := regexp.Compile(seg.Value)
			if err != nil {
				return nil, &Error{Err: ErrInvalidRegex, Cause: err, Fragment: seg.Value, Pos: pos}
			}

			pos += 2
		}

		pos += len(seg.Value)
	}

	return p, nil
}

// FromSegments builds a [Pattern] from decoded segments. Adjacent literal
// segments are merged; delimiters inside a segment are rejected.
func FromSegments(segs ...Segment) (*Pattern, error) {
	p := &Pattern{}
	for _, seg := range segs {
		if strings.ContainsAny(seg.Value, "<>") {
			return nil, &Error{Err: ErrUnbalanced, Fragment: seg.Value}
		}

		switch seg.Kind {
		case KindLiteral:
			if seg.Value == "" {
				continue
			}

			n := len(p.Segments)
			if n > 0 && p.Segments[n-1].Kind == KindLiteral {
				p.Segments[n-1].Value += seg.Value
				continue
			}

		case KindRegex:
			if seg.Value == "" {
				return nil, &Error{Err: ErrEmptyFragment}
			}

		default:
			return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(seg.Kind))
		}

		p.Segments = append(p.Segments, seg)
	}

	return p, nil
}

// String renders the pattern back to its source form.
func (p *Pattern) String() string {
	var sb strings.Builder
	for _, seg := range p.Segments {
		if seg.Kind == KindRegex {
			sb.WriteByte(OpenDelim)
			sb.WriteString(seg.Value)
			sb.WriteByte(CloseDelim)

			continue
		}

		sb.WriteString(seg.Value)
	}

	return sb.String()
}

// Regexes returns the regex fragments in order.
func (p *Pattern) Regexes() []string {
	var out []string
	for _, seg := range p.Segments {
		if seg.Kind == KindRegex {
			out = append(out, seg.Value)
		}
	}

	return out
}

// IsLiteral reports whether the pattern has no regex fragments.
func (p *Pattern) IsLiteral() bool {
	for _, seg := range p.Segments {
		if seg.Kind == KindRegex {
			return false
		}
	}

	return true
}
