package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulepack/api/v1beta1/configs"
	"github.com/macropower/rulepack/pkg/config"
	"github.com/macropower/rulepack/pkg/yaml"
)

const validConfig = `apiVersion: rulepack.macropower.dev/v1beta1
kind: Configuration
pack:
  compress: none
  output: out/rules.bin
validate:
  systeminfo: [win10, win11]
`

func TestNewLoaderFromFile(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		setupFile func(t *testing.T) string
		wantErr   bool
	}{
		"valid file": {
			setupFile: func(t *testing.T) string {
				t.Helper()

				return createTempFile(t, validConfig)
			},
		},
		"non-existent file": {
			setupFile: func(t *testing.T) string {
				t.Helper()

				return filepath.Join(t.TempDir(), "missing.yaml")
			},
			wantErr: true,
		},
		"directory instead of file": {
			setupFile: func(t *testing.T) string {
				t.Helper()

				return t.TempDir()
			},
			wantErr: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := config.NewLoaderFromFile(tc.setupFile(t), configs.New, configs.DefaultValidator)
			if tc.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, got)
		})
	}
}

func TestLoader_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		errMsg  string
		wantErr error
	}{
		"valid config": {
			input: validConfig,
		},
		"invalid yaml": {
			input: `apiVersion: rulepack.macropower.dev/v1beta1
kind: Configuration
invalid: [unclosed
`,
			errMsg: "sequence end token ']' not found",
		},
		"missing required fields": {
			input:  "pack:\n  compress: zstd\n",
			errMsg: "missing properties 'apiVersion', 'kind'",
		},
		"unknown compression": {
			input: `apiVersion: rulepack.macropower.dev/v1beta1
kind: Configuration
pack:
  compress: lz4
`,
			errMsg: "$.pack.compress",
		},
		"unknown field": {
			input: `apiVersion: rulepack.macropower.dev/v1beta1
kind: Configuration
extra: true
`,
			errMsg: "extra",
		},
		"wrong api version": {
			input:  "apiVersion: v1\nkind: Configuration\n",
			errMsg: "$.apiVersion",
		},
		"empty": {
			input:   "",
			wantErr: config.ErrEmpty,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cl := config.NewLoaderFromBytes([]byte(tc.input), configs.New, configs.DefaultValidator)

			err := cl.Validate()

			switch {
			case tc.wantErr != nil:
				require.ErrorIs(t, err, tc.wantErr)
			case tc.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errMsg)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestLoader_Validate_Line(t *testing.T) {
	t.Parallel()

	input := `apiVersion: rulepack.macropower.dev/v1beta1
kind: Configuration
pack:
  level: ludicrous
`

	err := config.NewLoaderFromBytes([]byte(input), configs.New, configs.DefaultValidator).Validate()

	var yamlErr *yaml.Error
	require.ErrorAs(t, err, &yamlErr)
	assert.Equal(t, 4, yamlErr.Line())
}

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	cl := config.NewLoaderFromBytes([]byte(validConfig), configs.New, configs.DefaultValidator)

	cfg, err := cl.Load()
	require.NoError(t, err)

	assert.Equal(t, "rulepack.macropower.dev/v1beta1", cfg.GetAPIVersion())
	assert.Equal(t, "Configuration", cfg.GetKind())
	assert.Equal(t, "none", cfg.Pack.Compress)
	assert.Equal(t, "out/rules.bin", cfg.Pack.Output)
	assert.Equal(t, []string{"win10", "win11"}, cfg.Validation.SystemInfo)

	// Unset fields get defaults.
	assert.Equal(t, "better", cfg.Pack.Level)
	assert.Equal(t, "./rules", cfg.Pack.Input)
}

func TestLoader_Load_Errors(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input  string
		errMsg string
	}{
		"invalid yaml": {
			input:  "pack: [unclosed\n",
			errMsg: "sequence end token ']' not found",
		},
		"bad level skips schema": {
			// Load does not check the schema, but still checks values.
			input:  "apiVersion: rulepack.macropower.dev/v1beta1\nkind: Configuration\npack:\n  level: ludicrous\n",
			errMsg: "ludicrous",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cl := config.NewLoaderFromBytes([]byte(tc.input), configs.New, configs.DefaultValidator)

			cfg, err := cl.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoader_WithValidator(t *testing.T) {
	t.Parallel()

	input := "kind: Anything\n"

	// A nil validator skips schema validation.
	cl := config.NewLoaderFromBytes([]byte(input), configs.New, configs.DefaultValidator, config.WithValidator(nil))
	require.NoError(t, cl.Validate())
}

func TestRead(t *testing.T) {
	t.Parallel()

	cfg, err := config.Read(createTempFile(t, validConfig), configs.New, configs.DefaultValidator)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Pack.Compress)

	path := createTempFile(t, "kind: Configuration\n")

	_, err = config.Read(path, configs.New, configs.DefaultValidator)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate "+path)
}

func TestLoader_RoundTrip(t *testing.T) {
	t.Parallel()

	b, err := configs.New().MarshalYAML()
	require.NoError(t, err)

	cl := config.NewLoaderFromBytes(b, configs.New, configs.DefaultValidator)
	require.NoError(t, cl.Validate())

	cfg, err := cl.Load()
	require.NoError(t, err)
	assert.Equal(t, configs.New(), cfg)
}

// createTempFile creates a temporary file with the given content.
func createTempFile(t *testing.T, content string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)

	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)

	err = tmpFile.Close()
	require.NoError(t, err)

	return tmpFile.Name()
}
