// Package configs provides the rulepack Config configuration type.
package configs

import (
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/klauspost/compress/zstd"

	"github.com/macropower/rulepack/api"
	"github.com/macropower/rulepack/api/v1beta1"
	"github.com/macropower/rulepack/pkg/container"
	"github.com/macropower/rulepack/pkg/packer"
	"github.com/macropower/rulepack/pkg/yaml"
)

//go:generate go run ../../../internal/schemagen -kind config -root ../../.. -o ../../../schemas/configs.v1beta1.json

// SchemaURL identifies the configuration schema.
const SchemaURL = "/configs.v1beta1.json"

var (
	// FileNames are the configuration file names searched for by [Find].
	FileNames = []string{"rulepack.yaml", ".rulepack.yaml"}

	// ValidKinds contains the valid kind values for configurations.
	ValidKinds = []string{"Configuration"}

	// SchemaJSON is the JSON schema for [Config].
	SchemaJSON = yaml.NewSchemaGenerator(&Config{}).MustGenerate(yaml.WithSchemaID(SchemaURL))

	// DefaultValidator validates configuration against [SchemaJSON].
	DefaultValidator = yaml.MustNewValidator(SchemaURL, SchemaJSON)

	// Compile-time interface checks.
	_ v1beta1.Object = (*Config)(nil)
)

// Config is the rulepack configuration file.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Config struct {
	// Pack holds defaults for the pack command.
	Pack *PackConfig `json:"pack,omitempty" jsonschema:"title=Pack"`
	// Validation holds rule validation settings.
	Validation       *ValidationConfig `json:"validate,omitempty" jsonschema:"title=Validate"`
	v1beta1.TypeMeta `json:",inline"`
}

// PackConfig holds defaults for the pack command.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type PackConfig struct {
	// Input is the rule directory.
	Input string `json:"input,omitempty" jsonschema:"title=Input"`
	// Output is the container file to write.
	Output string `json:"output,omitempty" jsonschema:"title=Output"`
	// Compress is the payload compression.
	Compress string `json:"compress,omitempty" jsonschema:"title=Compression"`
	// Level is the zstd compression level.
	Level string `json:"level,omitempty" jsonschema:"title=Level"`
}

// ValidationConfig holds rule validation settings.
type ValidationConfig struct {
	// SystemInfo lists the allowed systeminfo tags. Empty allows any tag.
	SystemInfo []string `json:"systeminfo,omitempty" jsonschema:"title=System Info"`
}

// New creates a new [Config] with default values.
func New() *Config {
	c := &Config{
		TypeMeta: v1beta1.TypeMeta{
			APIVersion: v1beta1.APIVersion,
			Kind:       "Configuration",
		},
	}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults initializes unset fields to their default values.
func (c *Config) EnsureDefaults() {
	if c.Pack == nil {
		c.Pack = &PackConfig{}
	}

	c.Pack.EnsureDefaults()

	if c.Validation == nil {
		c.Validation = &ValidationConfig{}
	}
}

// EnsureDefaults initializes unset fields to their default values.
func (p *PackConfig) EnsureDefaults() {
	if p.Input == "" {
		p.Input = packer.DefaultPackInput
	}
	if p.Output == "" {
		p.Output = packer.DefaultPackOutput
	}
	if p.Compress == "" {
		p.Compress = container.CompressionZstd.String()
	}
	if p.Level == "" {
		p.Level = container.DefaultLevel.String()
	}
}

// Validate checks values the schema cannot express.
func (c *Config) Validate() error {
	if c.Pack == nil {
		return nil
	}

	_, _, err := c.Pack.Codec()
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}

	return nil
}

// Codec parses the configured compression and level.
func (p *PackConfig) Codec() (container.Compression, zstd.EncoderLevel, error) {
	c, err := container.ParseCompression(p.Compress)
	if err != nil {
		return 0, 0, err //nolint:wrapcheck // Names the value.
	}

	level, err := container.ParseLevel(p.Level)
	if err != nil {
		return 0, 0, err //nolint:wrapcheck // Names the value.
	}

	return c, level, nil
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	v1beta1.ExtendSchemaWithEnums(jss, v1beta1.ValidAPIVersions, ValidKinds)
}

func (p PackConfig) JSONSchemaExtend(jss *jsonschema.Schema) {
	for name, values := range map[string][]string{
		"compress": container.Compressions,
		"level":    container.Levels,
	} {
		prop, ok := jss.Properties.Get(name)
		if !ok {
			continue
		}

		for _, v := range values {
			prop.Enum = append(prop.Enum, v)
		}
	}
}

// MarshalYAML serializes the config to YAML.
func (c Config) MarshalYAML() ([]byte, error) {
	type alias Config

	b, err := api.MarshalYAML(alias(c))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}

// Find returns the nearest configuration file at or above dir, or an empty
// string if there is none.
func Find(dir string) (string, error) {
	path, err := api.FindConfigFile(dir, FileNames)
	if err != nil {
		return "", fmt.Errorf("find config: %w", err)
	}

	return path, nil
}
