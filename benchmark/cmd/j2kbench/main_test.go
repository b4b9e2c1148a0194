package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-j2kbench/benchmark"
	"github.com/nvr-ai/go-j2kbench/codestream"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeStream(t *testing.T, dir, name string, jp2 bool) string {
	t.Helper()
	cs := codestream.Synthesize(codestream.SyntheticParams{
		Width:          64,
		Height:         32,
		BitsPerSample:  12,
		ComponentCount: 1,
		Decompositions: 5,
		Reversible:     true,
		Body:           make([]byte, 16),
	})
	if jp2 {
		cs = codestream.WrapJP2(cs)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, cs, 0o644))
	return path
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	j2k := writeStream(t, dir, "a.j2k", false)
	jp2 := writeStream(t, dir, "b.jp2", true)

	out, _, err := execute(t, "inspect", j2k, jp2)
	require.NoError(t, err)
	assert.Contains(t, out, j2k+": codestream")
	assert.Contains(t, out, jp2+": JP2")
	assert.Contains(t, out, "64x32 12-bit unsigned x1")
	assert.Contains(t, out, "5/3 reversible")
	assert.Equal(t, 2, strings.Count(out, "complete     true"))
}

func TestInspectJSONReportsTruncation(t *testing.T) {
	dir := t.TempDir()
	path := writeStream(t, dir, "a.j2k", false)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-4], 0o644))

	out, logs, err := execute(t, "inspect", "--json", path)
	require.NoError(t, err)

	var results []inspection
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.False(t, results[0].Complete)
	assert.Equal(t, uint32(64), results[0].Frame.Width)
	assert.Contains(t, logs, "codestream is truncated")
}

func TestInspectRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.j2k")
	require.NoError(t, os.WriteFile(path, []byte("not a codestream"), 0o644))

	_, _, err := execute(t, "inspect", path)
	assert.True(t, errors.Is(err, codestream.ErrNotJPEG2000))
}

func TestFixturesInventory(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw")
	j2k := filepath.Join(dir, "j2k")
	require.NoError(t, os.MkdirAll(raw, 0o755))
	require.NoError(t, os.MkdirAll(j2k, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(raw, "CT1.RAW"), make([]byte, 2048), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(j2k, "CT1.j2k"), make([]byte, 1024), 0o644))

	out, logs, err := execute(t, "fixtures", "--raw-dir", raw, "--j2k-dir", j2k, "--fixture", "CT1,MR1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, lines[1], "CT1")
	assert.Contains(t, lines[1], "512x512 16-bit signed x1")
	assert.Contains(t, lines[1], "2.0 kB")
	assert.Contains(t, lines[1], "2.00")
	assert.Contains(t, lines[2], "MR1")
	assert.Equal(t, 2, strings.Count(lines[2], "missing"))
	assert.Contains(t, logs, "fixtures incomplete")
}

func TestFixturesExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")

	_, _, err := execute(t, "fixtures", "--fixture", "XA1", "--fixture", "CT2", "--export", path)
	require.NoError(t, err)

	set, err := benchmark.LoadFixtureSet(path)
	require.NoError(t, err)
	require.Len(t, set.Fixtures, 2)
	assert.Equal(t, "XA1", set.Fixtures[0].Name)
	assert.Equal(t, "CT2", set.Fixtures[1].Name)
}

func TestRunUnknownBinding(t *testing.T) {
	_, _, err := execute(t, "run", "--binding", "kakadu")
	assert.True(t, errors.Is(err, benchmark.ErrInitialization))
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("operations: [transcode]\n"), 0o644))

	_, _, err := execute(t, "--config", cfg, "run")
	assert.True(t, errors.Is(err, benchmark.ErrInvalidOptions))
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "j2kbench dev\n", out)
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "--log-level", "loud", "version")
	assert.ErrorContains(t, err, "invalid --log-level")
}

func writeResults(t *testing.T, dir, name string, ms float64) string {
	t.Helper()
	data, err := json.Marshal(benchmark.ResultsFile{
		RunID: name,
		Records: []benchmark.RunRecord{
			{Binding: "openjpeg", Fixture: "CT1", Operation: benchmark.OperationDecode, MsPerIteration: ms},
		},
	})
	require.NoError(t, err)
	path := filepath.Join(dir, name+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestCompare(t *testing.T) {
	dir := t.TempDir()
	base := writeResults(t, dir, "base", 10)
	same := writeResults(t, dir, "same", 10.5)
	slow := writeResults(t, dir, "slow", 15)

	out, _, err := execute(t, "compare", base, same)
	require.NoError(t, err)
	assert.Contains(t, out, "STABLE")

	out, _, err = execute(t, "compare", base, slow)
	assert.True(t, errors.Is(err, benchmark.ErrRegression))
	assert.Contains(t, out, "REGRESSION  openjpeg decode CT1")

	_, _, err = execute(t, "compare", "--fail-on-regression=false", "--ms-tolerance", "10", base, slow)
	assert.NoError(t, err)

	_, _, err = execute(t, "compare", base)
	assert.Error(t, err)
}
