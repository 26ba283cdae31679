package canon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulepack/pkg/canon"
	"github.com/macropower/rulepack/pkg/rule"
)

func messySet() *rule.Set {
	return rule.NewSet(
		&rule.Rule{
			ID:         "zeta",
			Name:       "  Zeta  ",
			Risk:       rule.RiskHigh,
			SystemInfo: []string{" win10", "win11", "win10 ", ""},
			Update:     "2025-01-01 ",
			Match: rule.Match{
				Path: []string{`  C:\Temp\<zeta.*> `},
				Registry: []*rule.RegistryRule{
					{Path: ` HKCU\Software\Zeta`, Value: rule.Ptr(" Install* "), ValueData: rule.Ptr(" trailing data "), Action: rule.ActionDeleteValue},
					{Path: `HKLM\Software\<Zeta\d+>`},
				},
			},
		},
		&rule.Rule{
			ID:          "alpha",
			Name:        "Alpha",
			Risk:        rule.RiskDefault,
			SystemInfo:  []string{},
			Update:      "2024-06-01",
			Description: "\tdesc\n",
			Match: rule.Match{
				Registry: []*rule.RegistryRule{},
			},
		},
	)
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	in := messySet()
	orig := in.Clone()

	got := canon.Canonicalize(in)

	// Input is untouched.
	assert.Equal(t, orig, in)

	require.Equal(t, []string{"alpha", "zeta"}, got.IDs())

	alpha := got.Get("alpha")
	assert.Nil(t, alpha.SystemInfo)
	assert.Nil(t, alpha.Match.Registry)
	assert.Nil(t, alpha.Match.Path)
	assert.Equal(t, "desc", alpha.Description)

	zeta := got.Get("zeta")
	assert.Equal(t, "Zeta", zeta.Name)
	assert.Equal(t, "2025-01-01", zeta.Update)
	assert.Equal(t, []string{"win10", "win11"}, zeta.SystemInfo)
	// Match fields keep their whitespace.
	assert.Equal(t, []string{`  C:\Temp\<zeta.*> `}, zeta.Match.Path)

	require.Len(t, zeta.Match.Registry, 2)

	first := zeta.Match.Registry[0]
	assert.Equal(t, ` HKCU\Software\Zeta`, first.Path)
	assert.Equal(t, rule.DefaultKey, first.Key)
	assert.Equal(t, " Install* ", *first.Value)
	assert.Equal(t, " trailing data ", *first.ValueData)
	assert.Equal(t, rule.ActionDeleteValue, first.Action)

	second := zeta.Match.Registry[1]
	assert.Equal(t, rule.DefaultKey, second.Key)
	assert.Equal(t, rule.ActionDeleteKey, second.Action)
	assert.Nil(t, second.Value)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	t.Parallel()

	once := canon.Canonicalize(messySet())
	twice := canon.Canonicalize(once)

	assert.Equal(t, once, twice)
}

func TestCanonicalize_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := messySet()
	b := messySet()
	b.Rules[0], b.Rules[1] = b.Rules[1], b.Rules[0]

	assert.Equal(t, canon.Canonicalize(a), canon.Canonicalize(b))
}

func TestCanonicalize_Nil(t *testing.T) {
	t.Parallel()

	got := canon.Canonicalize(nil)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Len())
}

func TestPattern(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		in   string
		want string
	}{
		"literal":     {in: ` C:\Temp `, want: ` C:\Temp `},
		"fragments":   {in: `%APPDATA%\<[Vv]endor>\<.*\.log>`, want: `%APPDATA%\<[Vv]endor>\<.*\.log>`},
		"unscannable": {in: ` <oops `, want: ` <oops `},
		"adjacent":    {in: `<a><b>`, want: `<a><b>`},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, canon.Pattern(tc.in))
		})
	}
}
