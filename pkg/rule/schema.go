package rule

import (
	"github.com/macropower/rulepack/pkg/yaml"
)

//go:generate go run ../../internal/schemagen -kind rule -root ../.. -o ../../schemas/rule.v1.json

// SchemaURL identifies the rule document schema.
const SchemaURL = "/rule.v1.json"

var (
	// SchemaJSON is the JSON schema of a rule document, reflected from [Rule].
	SchemaJSON = yaml.NewSchemaGenerator(&Rule{}).MustGenerate()

	// DefaultValidator validates decoded rule documents against [SchemaJSON].
	DefaultValidator = yaml.MustNewValidator(SchemaURL, SchemaJSON)
)
