package packer_test

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/rulepack/pkg/canon"
	"github.com/macropower/rulepack/pkg/container"
	"github.com/macropower/rulepack/pkg/expr"
	"github.com/macropower/rulepack/pkg/loader"
	"github.com/macropower/rulepack/pkg/packer"
)

const (
	fooRule = `id: foo
name: Foo
risk: high
update: 2025-01-01
match:
  path:
    - "C:\\Temp\\<foo.*>"
`
	barRule = `id: bar
name: Bar Tool
risk: default
systeminfo: [win11, win10]
update: 2024-12-31
description: Removes Bar.
match:
  path:
    - '%APPDATA%\<[Vv]endor>\<.*\.log>'
  registry:
    - path: 'HKCU\Software\<Bar.*>'
      value: Install*
      action: delete_value
    - path: 'HKLM\Software\Bar'
`
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "rules")
	writeFiles(t, root, files)

	return root
}

func TestScenario(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "rules")
	writeFiles(t, input, map[string]string{"高危软件/foo.yaml": fooRule})

	output := filepath.Join(dir, "dist", "rules.bin")

	res, err := packer.Pack(t.Context(), packer.PackOptions{
		Input:       input,
		Output:      output,
		Compression: container.CompressionNone,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rules)
	assert.Equal(t, res.PayloadSize, res.StoredSize)
	require.FileExists(t, output)

	sum, err := packer.Info(t.Context(), packer.InfoOptions{Input: output})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), sum.RuleCount)
	assert.Equal(t, "none", sum.Compression)
	assert.Equal(t, container.Version, sum.Version)
	assert.False(t, sum.Verified)
	require.Len(t, sum.Rules, 1)
	assert.Equal(t, "foo", sum.Rules[0].ID)

	var text bytes.Buffer
	require.NoError(t, sum.Render(&text, packer.FormatText, false))
	assert.Contains(t, text.String(), "Rules:       1")
	assert.Contains(t, text.String(), "Compression: none")
	assert.Contains(t, text.String(), "foo")

	outDir := filepath.Join(dir, "unpacked")

	ures, err := packer.Unpack(t.Context(), packer.UnpackOptions{Input: output, Output: outDir})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(outDir, "foo.yaml")}, ures.Files)

	b, err := os.ReadFile(filepath.Join(outDir, "foo.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "id: foo")

	got, err := loader.Load(t.Context(), outDir)
	require.NoError(t, err)
	assert.Equal(t, []string{`C:\Temp\<foo.*>`}, got.Get("foo").Match.Path)
}

func TestUnpack_RoundTrip(t *testing.T) {
	t.Parallel()

	input := newTree(t, map[string]string{"a/foo.yaml": fooRule, "b/bar.yml": barRule})
	output := filepath.Join(t.TempDir(), "rules.bin")

	_, err := packer.Pack(t.Context(), packer.PackOptions{
		Input:       input,
		Output:      output,
		Compression: container.CompressionZstd,
	})
	require.NoError(t, err)

	outDir := filepath.Join(t.TempDir(), "out")

	_, err = packer.Unpack(t.Context(), packer.UnpackOptions{Input: output, Output: outDir})
	require.NoError(t, err)

	want, err := loader.Load(t.Context(), input)
	require.NoError(t, err)

	got, err := loader.Load(t.Context(), outDir)
	require.NoError(t, err)

	assert.Equal(t, canon.Canonicalize(want), canon.Canonicalize(got))
}

func TestPack_Deterministic(t *testing.T) {
	t.Parallel()

	one := newTree(t, map[string]string{"x/foo.yaml": fooRule, "y/bar.yaml": barRule})
	two := newTree(t, map[string]string{"0-bar.yml": barRule, "z/z/1-foo.yaml": fooRule})

	var outputs [][]byte

	for _, input := range []string{one, one, two} {
		output := filepath.Join(t.TempDir(), "rules.bin")

		_, err := packer.Pack(t.Context(), packer.PackOptions{
			Input:       input,
			Output:      output,
			Compression: container.CompressionZstd,
		})
		require.NoError(t, err)

		b, err := os.ReadFile(output)
		require.NoError(t, err)

		outputs = append(outputs, b)
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[0], outputs[2])
}

func TestPack_DuplicateID(t *testing.T) {
	t.Parallel()

	input := newTree(t, map[string]string{"a/foo.yaml": fooRule, "b/foo.yaml": fooRule})
	outDir := filepath.Join(t.TempDir(), "dist")
	output := filepath.Join(outDir, "rules.bin")

	_, err := packer.Pack(t.Context(), packer.PackOptions{Input: input, Output: output})

	var errs *loader.Errors
	require.ErrorAs(t, err, &errs)

	dups := errs.ByKind(loader.KindDuplicateID)
	require.Len(t, dups, 2)
	assert.Contains(t, dups[0].Detail, filepath.Join(input, "a", "foo.yaml"))
	assert.Contains(t, dups[0].Detail, filepath.Join(input, "b", "foo.yaml"))

	assert.NoFileExists(t, output)
}

func TestPack_KeepsPreviousOutputOnFailure(t *testing.T) {
	t.Parallel()

	outDir := t.TempDir()
	output := filepath.Join(outDir, "rules.bin")
	require.NoError(t, os.WriteFile(output, []byte("previous"), 0o644))

	input := newTree(t, map[string]string{
		"foo.yaml": "id: foo\nname: Foo\nrisk: high\nupdate: 2025-01-01\nmatch:\n  registry:\n    - path: HKCU\\Foo\n      action: delete_value\n",
	})

	_, err := packer.Pack(t.Context(), packer.PackOptions{Input: input, Output: output})

	var errs *loader.Errors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs.ByKind(loader.KindActionMismatch), 1)

	b, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(b))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func packFixture(t *testing.T, c container.Compression) string {
	t.Helper()

	input := newTree(t, map[string]string{"foo.yaml": fooRule, "bar.yaml": barRule})
	output := filepath.Join(t.TempDir(), "rules.bin")

	_, err := packer.Pack(t.Context(), packer.PackOptions{Input: input, Output: output, Compression: c})
	require.NoError(t, err)

	return output
}

func TestInfo_UnsupportedVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.bin")
	// Magic and a version from the future, nothing else.
	require.NoError(t, os.WriteFile(path, []byte{'R', 'P', 'A', 'K', 2, 0}, 0o644))

	_, err := packer.Info(t.Context(), packer.InfoOptions{Input: path})
	require.ErrorIs(t, err, container.ErrUnsupportedVersion)
}

func TestInfo_Verify(t *testing.T) {
	t.Parallel()

	path := packFixture(t, container.CompressionNone)

	sum, err := packer.Info(t.Context(), packer.InfoOptions{Input: path, Verify: true})
	require.NoError(t, err)
	assert.True(t, sum.Verified)

	// Corrupt the last payload byte.
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	b[len(b)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, b, 0o644))

	_, err = packer.Info(t.Context(), packer.InfoOptions{Input: path})
	require.NoError(t, err)

	_, err = packer.Info(t.Context(), packer.InfoOptions{Input: path, Verify: true})
	require.ErrorIs(t, err, container.ErrChecksumMismatch)

	_, err = packer.Unpack(t.Context(), packer.UnpackOptions{Input: path, Output: t.TempDir()})
	require.ErrorIs(t, err, container.ErrChecksumMismatch)
}

func TestInfo_Filter(t *testing.T) {
	t.Parallel()

	path := packFixture(t, container.CompressionZstd)

	f, err := expr.NewIndexFilter(`risk == "high"`)
	require.NoError(t, err)

	sum, err := packer.Info(t.Context(), packer.InfoOptions{Input: path, Filter: f})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), sum.RuleCount)
	require.Len(t, sum.Rules, 1)
	assert.Equal(t, "foo", sum.Rules[0].ID)
	assert.Equal(t, "zstd", sum.Compression)
}

func TestInfo_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := packer.Info(t.Context(), packer.InfoOptions{Input: filepath.Join(dir, "missing.bin")})
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = packer.Info(t.Context(), packer.InfoOptions{Input: dir})
	require.Error(t, err)

	short := filepath.Join(dir, "short.bin")
	require.NoError(t, os.WriteFile(short, []byte("RP"), 0o644))

	_, err = packer.Info(t.Context(), packer.InfoOptions{Input: short})
	require.ErrorIs(t, err, container.ErrTruncated)

	// Header only, index missing.
	b, err := os.ReadFile(packFixture(t, container.CompressionNone))
	require.NoError(t, err)

	headerOnly := filepath.Join(dir, "header.bin")
	require.NoError(t, os.WriteFile(headerOnly, b[:container.HeaderSize], 0o644))

	_, err = packer.Info(t.Context(), packer.InfoOptions{Input: headerOnly})
	require.ErrorIs(t, err, container.ErrTruncated)
}

func TestUnpack_Filter(t *testing.T) {
	t.Parallel()

	path := packFixture(t, container.CompressionZstd)

	f, err := expr.NewFilter(`paths.exists(p, !isLiteral(p)) && "win10" in systeminfo`)
	require.NoError(t, err)

	outDir := t.TempDir()

	res, err := packer.Unpack(t.Context(), packer.UnpackOptions{Input: path, Output: outDir, Filter: f})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []string{filepath.Join(outDir, "bar.yaml")}, res.Files)
}

func TestUnpack_UnsafeID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "rules.bin")

	_, err := packer.Pack(t.Context(), packer.PackOptions{
		Input:       newTree(t, map[string]string{"e.yaml": "id: zzescaped0\nname: Escape\nrisk: high\nupdate: 2025-01-01\n"}),
		Output:      input,
		Compression: container.CompressionNone,
	})
	require.NoError(t, err)

	// Rewrite the id in place and fix up both checksums.
	data, err := os.ReadFile(input)
	require.NoError(t, err)

	h, err := container.ReadHeader(data)
	require.NoError(t, err)

	data = bytes.ReplaceAll(data, []byte("zzescaped0"), []byte("../escaped"))
	idxEnd := container.HeaderSize + int(h.IndexLen)
	binary.LittleEndian.PutUint64(data[32:], xxhash.Sum64(data[idxEnd:]))
	binary.LittleEndian.PutUint64(data[40:], xxhash.Sum64(data[container.HeaderSize:idxEnd]))
	require.NoError(t, os.WriteFile(input, data, 0o644))

	output := filepath.Join(dir, "out")

	_, err = packer.Unpack(t.Context(), packer.UnpackOptions{Input: input, Output: output})
	require.ErrorIs(t, err, container.ErrFormat)

	assert.NoFileExists(t, filepath.Join(dir, "escaped.yaml"))
}

func TestUnpackPath(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		id      string
		wantErr bool
	}{
		"plain":     {id: "foo_1"},
		"parent":    {id: "../escaped", wantErr: true},
		"windows":   {id: `..\escaped`, wantErr: true},
		"absolute":  {id: "/etc/passwd", wantErr: true},
		"empty":     {id: "", wantErr: true},
		"uppercase": {id: "Foo", wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := packer.UnpackPath("out", tc.id)
			if tc.wantErr {
				require.ErrorIs(t, err, packer.ErrUnsafeID)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, filepath.Join("out", tc.id+".yaml"), got)
		})
	}
}

func TestSummary_Render(t *testing.T) {
	t.Parallel()

	sum, err := packer.Info(t.Context(), packer.InfoOptions{Input: packFixture(t, container.CompressionZstd)})
	require.NoError(t, err)

	var jsonOut bytes.Buffer
	require.NoError(t, sum.Render(&jsonOut, packer.FormatJSON, false))

	var decoded packer.Summary
	require.NoError(t, json.Unmarshal(jsonOut.Bytes(), &decoded))
	assert.Equal(t, *sum, decoded)

	var yamlOut bytes.Buffer
	require.NoError(t, sum.Render(&yamlOut, packer.FormatYAML, false))
	assert.Contains(t, yamlOut.String(), "compression: zstd")
	assert.Contains(t, yamlOut.String(), "ruleCount: 2")

	var styled bytes.Buffer
	require.NoError(t, sum.Render(&styled, packer.FormatText, true))
	assert.Contains(t, styled.String(), "Bar Tool")

	require.ErrorIs(t, sum.Render(&styled, packer.Format("xml"), false), packer.ErrUnknownFormat)

	_, err = packer.ParseFormat("XML")
	require.ErrorIs(t, err, packer.ErrUnknownFormat)

	f, err := packer.ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, packer.FormatJSON, f)
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.bin")

	require.NoError(t, packer.WriteFileAtomic(path, []byte("one"), 0o640))
	require.NoError(t, packer.WriteFileAtomic(path, []byte("two"), 0o640))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// The target is a directory, so the rename fails.
	target := filepath.Join(dir, "taken")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0o755))
	require.Error(t, packer.WriteFileAtomic(target, []byte("x"), 0o644))

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
