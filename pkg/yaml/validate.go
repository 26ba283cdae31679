package yaml

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var messagePrinter = message.NewPrinter(language.English)

// Validator validates data against a JSON schema.
// Uses [github.com/santhosh-tekuri/jsonschema/v6].
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator creates a new [Validator] with the provided JSON schema data.
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	var schema any

	err := json.Unmarshal(schemaData, &schema)
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	err = compiler.AddResource(url, schema)
	if err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: jss}, nil
}

func MustNewValidator(url string, schemaData []byte) *Validator {
	v, err := NewValidator(url, schemaData)
	if err != nil {
		panic(err)
	}

	return v
}

// Validate validates the given data against the schema.
// It returns an [Error] pointing at the most specific failing location.
func (s *Validator) Validate(data any) error {
	err := s.schema.Validate(data)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	path, pathErr := buildPathFromLocation(findMostSpecificLocation(validationErr))
	if pathErr != nil {
		return &Error{
			Err: fmt.Errorf("schema validation: %w", validationErr),
		}
	}

	return &Error{
		Err:  validationErr,
		Path: path,
	}
}

// Violation is a single leaf failure reported by schema validation.
type Violation struct {
	Keyword  string   // Failing schema keyword, e.g. "required" or "enum".
	Message  string   // Human readable description.
	Location []string // Instance location of the failing value.
}

// Field renders the location as a dotted field path, e.g. "match.path[2]".
func (v Violation) Field() string {
	var sb strings.Builder
	for _, part := range v.Location {
		if _, err := strconv.Atoi(part); err == nil {
			sb.WriteString("[" + part + "]")
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}

		sb.WriteString(part)
	}

	return sb.String()
}

// Path returns the location as a [yaml.Path].
func (v Violation) Path() *yaml.Path {
	//nolint:errcheck // Never fails.
	p, _ := buildPathFromLocation(v.Location)

	return p
}

// Violations validates data and returns every leaf failure instead of only
// the most specific one. A nil slice means the data is valid.
func (s *Validator) Violations(data any) ([]Violation, error) {
	err := s.schema.Validate(data)
	if err == nil {
		return nil, nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var out []Violation

	collectViolations(validationErr, &out)

	return out, nil
}

func collectViolations(err *jsonschema.ValidationError, out *[]Violation) {
	if len(err.Causes) > 0 {
		for _, cause := range err.Causes {
			collectViolations(cause, out)
		}

		return
	}

	// Report each missing property at its own location.
	if req, ok := err.ErrorKind.(*kind.Required); ok {
		for _, missing := range req.Missing {
			loc := append(append([]string{}, err.InstanceLocation...), missing)
			*out = append(*out, Violation{
				Keyword:  "required",
				Message:  fmt.Sprintf("missing property %q", missing),
				Location: loc,
			})
		}

		return
	}

	keyword := ""
	if kp := err.ErrorKind.KeywordPath(); len(kp) > 0 {
		keyword = kp[len(kp)-1]
	}

	*out = append(*out, Violation{
		Keyword:  keyword,
		Message:  err.ErrorKind.LocalizedString(messagePrinter),
		Location: err.InstanceLocation,
	})
}

// findMostSpecificLocation recursively searches through all causes to find the
// one with the longest InstanceLocation.
func findMostSpecificLocation(err *jsonschema.ValidationError) []string {
	longest := err.InstanceLocation

	for _, cause := range err.Causes {
		candidateLocation := findMostSpecificLocation(cause)
		if len(candidateLocation) > len(longest) {
			longest = candidateLocation
		}
	}

	return longest
}

// buildPathFromLocation converts an InstanceLocation slice to a [yaml.Path].
func buildPathFromLocation(location []string) (*yaml.Path, error) {
	if len(location) == 0 {
		// Root level error.
		return NewPathBuilder().Root().Build(), nil
	}

	pb := NewPathBuilder()
	current := pb.Root()

	for _, part := range location {
		var index uint

		_, err := fmt.Sscanf(part, "%d", &index)
		if err == nil {
			current = current.Index(index)
		} else {
			current = current.Child(part)
		}
	}

	return current.Build(), nil
}
