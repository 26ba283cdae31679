package yaml

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaGenerator reflects a JSON schema from a Go value.
type SchemaGenerator struct {
	reflector *jsonschema.Reflector
	value     any
	id        string
}

// SchemaOpt configures a [SchemaGenerator].
type SchemaOpt func(*SchemaGenerator) error

// WithGoComments adds Go doc comments from the package at pkgPath (relative
// to base) as schema descriptions. Only useful when the sources are present,
// e.g. under go:generate.
func WithGoComments(base, pkgPath string) SchemaOpt {
	return func(g *SchemaGenerator) error {
		err := g.reflector.AddGoComments(base, pkgPath)
		if err != nil {
			return fmt.Errorf("add go comments: %w", err)
		}

		return nil
	}
}

// WithSchemaID sets the "$id" of the generated schema.
func WithSchemaID(id string) SchemaOpt {
	return func(g *SchemaGenerator) error {
		g.id = id
		return nil
	}
}

// NewSchemaGenerator creates a [SchemaGenerator] for v. Required properties
// come from `jsonschema:"required"` tags, and nested types are inlined.
func NewSchemaGenerator(v any) *SchemaGenerator {
	return &SchemaGenerator{
		value: v,
		reflector: &jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			DoNotReference:             true,
			ExpandedStruct:             true,
		},
	}
}

// Generate returns the indented JSON schema.
func (g *SchemaGenerator) Generate(opts ...SchemaOpt) ([]byte, error) {
	for _, opt := range opts {
		err := opt(g)
		if err != nil {
			return nil, err
		}
	}

	js := g.reflector.Reflect(g.value)
	if g.id != "" {
		js.ID = jsonschema.ID(g.id)
	}

	b, err := json.MarshalIndent(js, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return b, nil
}

// MustGenerate is like [SchemaGenerator.Generate] but panics on error.
func (g *SchemaGenerator) MustGenerate(opts ...SchemaOpt) []byte {
	b, err := g.Generate(opts...)
	if err != nil {
		panic(err)
	}

	return b
}
