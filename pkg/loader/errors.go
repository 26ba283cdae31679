package loader

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrNoRules is returned when the root contains no rule documents.
var ErrNoRules = errors.New("no rule files found")

// Kind classifies a [ValidationError].
type Kind int

const (
	KindParse Kind = iota
	KindSchema
	KindMissingField
	KindInvalidID
	KindDuplicateID
	KindInvalidRisk
	KindInvalidAction
	KindInvalidDate
	KindActionMismatch
	KindInvalidRegex
	KindUnbalancedDelimiter
	KindEmptyFragment
	KindUnknownSystem
)

var kindNames = map[Kind]string{
	KindParse:               "parse error",
	KindSchema:              "schema violation",
	KindMissingField:        "missing field",
	KindInvalidID:           "invalid id",
	KindDuplicateID:         "duplicate id",
	KindInvalidRisk:         "invalid risk",
	KindInvalidAction:       "invalid action",
	KindInvalidDate:         "invalid date",
	KindActionMismatch:      "action mismatch",
	KindInvalidRegex:        "invalid regex",
	KindUnbalancedDelimiter: "unbalanced delimiter",
	KindEmptyFragment:       "empty fragment",
	KindUnknownSystem:       "unknown system",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("kind(%d)", int(k))
}

// ValidationError is a single problem found in one rule file.
type ValidationError struct {
	File   string // Path of the rule file.
	Field  string // Dotted field path, empty for the whole document.
	Detail string
	Kind   Kind
	Line   int // 1-based source line, 0 if unknown.
}

func (e *ValidationError) Error() string {
	var sb strings.Builder

	sb.WriteString(e.File)
	if e.Line > 0 {
		fmt.Fprintf(&sb, ":%d", e.Line)
	}

	sb.WriteString(": ")
	if e.Field != "" {
		sb.WriteString(e.Field + ": ")
	}

	sb.WriteString(e.Kind.String())
	if e.Detail != "" {
		sb.WriteString(": " + e.Detail)
	}

	return sb.String()
}

// Errors aggregates every [ValidationError] of a load.
type Errors struct {
	Errs []*ValidationError
}

func (e *Errors) Error() string {
	var sb strings.Builder

	if len(e.Errs) == 1 {
		sb.WriteString("1 validation error:")
	} else {
		fmt.Fprintf(&sb, "%d validation errors:", len(e.Errs))
	}

	for _, err := range e.Errs {
		sb.WriteString("\n  " + err.Error())
	}

	return sb.String()
}

func (e *Errors) Unwrap() []error {
	errs := make([]error, len(e.Errs))
	for i, err := range e.Errs {
		errs[i] = err
	}

	return errs
}

// ByKind returns the errors of kind k.
func (e *Errors) ByKind(k Kind) []*ValidationError {
	var out []*ValidationError
	for _, err := range e.Errs {
		if err.Kind == k {
			out = append(out, err)
		}
	}

	return out
}

// Files returns the distinct files with errors, sorted.
func (e *Errors) Files() []string {
	var files []string
	for _, err := range e.Errs {
		files = append(files, err.File)
	}

	slices.Sort(files)

	return slices.Compact(files)
}

func (e *Errors) sort() {
	slices.SortStableFunc(e.Errs, func(a, b *ValidationError) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Field, b.Field),
		)
	})
}
