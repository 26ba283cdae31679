package pattern_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulepack/pkg/pattern"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		wantErr error
		want    []pattern.Segment
	}{
		"literal only": {
			input: `C:\Windows\Temp`,
			want: []pattern.Segment{
				{Kind: pattern.KindLiteral, Value: `C:\Windows\Temp`},
			},
		},
		"trailing fragment": {
			input: `C:\Temp\<foo.*>`,
			want: []pattern.Segment{
				{Kind: pattern.KindLiteral, Value: `C:\Temp\`},
				{Kind: pattern.KindRegex, Value: `foo.*`},
			},
		},
		"multiple fragments with env token": {
			input: `%APPDATA%\<[Vv]endor>\<.*\.log>`,
			want: []pattern.Segment{
				{Kind: pattern.KindLiteral, Value: `%APPDATA%\`},
				{Kind: pattern.KindRegex, Value: `[Vv]endor`},
				{Kind: pattern.KindLiteral, Value: `\`},
				{Kind: pattern.KindRegex, Value: `.*\.log`},
			},
		},
		"adjacent fragments": {
			input: `<a><b>`,
			want: []pattern.Segment{
				{Kind: pattern.KindRegex, Value: `a`},
				{Kind: pattern.KindRegex, Value: `b`},
			},
		},
		"empty string": {
			input: ``,
			want:  nil,
		},
		"unclosed fragment": {
			input:   `C:\Temp\<foo`,
			wantErr: pattern.ErrUnbalanced,
		},
		"stray close": {
			input:   `C:\Temp\foo>`,
			wantErr: pattern.ErrUnbalanced,
		},
		"nested open": {
			input:   `<a<b>>`,
			wantErr: pattern.ErrUnbalanced,
		},
		"empty fragment": {
			input:   `C:\<>`,
			wantErr: pattern.ErrEmptyFragment,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := pattern.Parse(tc.input)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Segments)
			assert.Equal(t, tc.input, got.String())
		})
	}
}

func TestCompile(t *testing.T) {
	t.Parallel()

	_, err := pattern.Compile(`C:\Temp\<foo.*>`)
	require.NoError(t, err)

	_, err = pattern.Compile(`C:\Temp\<foo(>`)
	require.ErrorIs(t, err, pattern.ErrInvalidRegex)

	var perr *pattern.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "foo(", perr.Fragment)
	assert.Equal(t, 8, perr.Pos)
	assert.Error(t, perr.Cause)
}

func TestFromSegments(t *testing.T) {
	t.Parallel()

	p, err := pattern.FromSegments(
		pattern.Segment{Kind: pattern.KindLiteral, Value: `C:\`},
		pattern.Segment{Kind: pattern.KindLiteral, Value: `Temp\`},
		pattern.Segment{Kind: pattern.KindRegex, Value: `foo.*`},
	)
	require.NoError(t, err)
	assert.Equal(t, `C:\Temp\<foo.*>`, p.String())
	assert.Len(t, p.Segments, 2)
	assert.Equal(t, []string{"foo.*"}, p.Regexes())
	assert.False(t, p.IsLiteral())

	_, err = pattern.FromSegments(pattern.Segment{Kind: pattern.KindLiteral, Value: `a>b`})
	require.ErrorIs(t, err, pattern.ErrUnbalanced)

	_, err = pattern.FromSegments(pattern.Segment{Kind: pattern.KindRegex})
	require.ErrorIs(t, err, pattern.ErrEmptyFragment)

	_, err = pattern.FromSegments(pattern.Segment{Kind: pattern.Kind(9), Value: "x"})
	require.ErrorIs(t, err, pattern.ErrUnknownKind)
}
