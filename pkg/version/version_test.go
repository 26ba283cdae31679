package version_test

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/macropower/rulepack/pkg/version"
)

func TestRevisionFrom(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		want     string
		settings []debug.BuildSetting
	}{
		"no vcs": {
			want: "unknown",
		},
		"long revision": {
			settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}},
			want:     "0123456",
		},
		"short revision": {
			settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}},
			want:     "abc",
		},
		"modified": {
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.modified", Value: "true"},
			},
			want: "0123456-dirty",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, version.RevisionFrom(tc.settings))
		})
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	s := version.String()
	assert.True(t, strings.HasPrefix(s, version.GetVersion()+" ("), s)
	assert.Contains(t, s, version.GoVersion)
}
