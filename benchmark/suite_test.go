package benchmark

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suiteConfig(t *testing.T, store *DirStore) *Config {
	t.Helper()
	out := t.TempDir()
	cfg := DefaultConfig()
	cfg.Binding.Name = "fake"
	cfg.Fixtures.RawDir = store.RawDir
	cfg.Fixtures.CodestreamDir = store.CodestreamDir
	cfg.Fixtures.Manifest = filepath.Join(out, "corpus.json")
	cfg.Iterations = 3
	cfg.Output.Dir = out
	cfg.Output.SaveResults = true
	cfg.Output.Artifacts = true
	cfg.Output.Previews = true
	cfg.Output.PreviewMaxDimension = 8
	cfg.Output.MetricsFile = filepath.Join(out, "j2kbench.prom")
	require.NoError(t, SaveFixtureSet(&FixtureSet{Name: "small", Fixtures: smallCorpus()}, cfg.Fixtures.Manifest))
	return cfg
}

func TestNewSuite(t *testing.T) {
	suite := NewSuite(NewSuiteArgs{Binding: newFakeBinding(), Config: DefaultConfig()})

	assert.NotNil(t, suite)
	assert.Len(t, suite.RunID(), 36)
	assert.NotNil(t, suite.Metrics())
	assert.Empty(t, suite.Records())
}

func TestSuiteRun(t *testing.T) {
	store := writeCorpus(t, smallCorpus())
	cfg := suiteConfig(t, store)
	var report bytes.Buffer

	suite := NewSuite(NewSuiteArgs{Binding: newFakeBinding(), Config: cfg, Report: &report, Logger: quietLogger()})
	summaries, err := suite.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, 3, summaries[0].Runs)

	records := suite.Records()
	require.Len(t, records, 6)
	for _, r := range records {
		assert.Equal(t, suite.RunID(), r.RunID)
		assert.NotEmpty(t, r.Checksum)
	}
	assert.Equal(t, records[0].Frame.FrameSize(), records[1].OutputBytes)

	assert.Contains(t, report.String(), "Encode of CT1 took ")
	assert.Contains(t, report.String(), "fake decode: 3 runs")

	runDir := filepath.Join(cfg.Output.Dir, suite.RunID())
	assert.FileExists(t, filepath.Join(runDir, "artifacts", "fake", "CT1.j2k"))
	assert.FileExists(t, filepath.Join(runDir, "artifacts", "fake", "US1.RAW"))
	assert.FileExists(t, filepath.Join(runDir, "previews", "fake", "XA1.png"))

	prom, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `j2kbench_runs_total{binding="fake",operation="decode",status="ok"} 3`)

	results, err := filepath.Glob(filepath.Join(cfg.Output.Dir, "benchmark_fake_*_results.json"))
	require.NoError(t, err)
	require.Len(t, results, 1)

	data, err := os.ReadFile(results[0])
	require.NoError(t, err)
	var file ResultsFile
	require.NoError(t, json.Unmarshal(data, &file))
	assert.Equal(t, suite.RunID(), file.RunID)
	assert.Len(t, file.Records, 6)
	assert.Len(t, file.Summaries, 2)
	assert.NotZero(t, file.System.NumCPU)

	csvFile := strings.TrimSuffix(results[0], "_results.json") + "_summary.csv"
	f, err := os.Open(csvFile)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, "Binding", rows[0][0])
	assert.Equal(t, []string{"fake", "CT1", "encode"}, rows[1][:3])
}

func TestSuiteRunNamesJP2Artifacts(t *testing.T) {
	store := writeCorpus(t, smallCorpus())
	cfg := suiteConfig(t, store)
	cfg.Output.Previews = false
	binding := newFakeBinding()
	binding.jp2 = true

	suite := NewSuite(NewSuiteArgs{Binding: binding, Config: cfg, Report: io.Discard, Logger: quietLogger()})
	_, err := suite.Run(context.Background())
	require.NoError(t, err)

	dir := filepath.Join(cfg.Output.Dir, suite.RunID(), "artifacts", "fake")
	assert.FileExists(t, filepath.Join(dir, "CT1.jp2"))
	assert.NoFileExists(t, filepath.Join(dir, "CT1.j2k"))
	assert.FileExists(t, filepath.Join(dir, "CT1.RAW"))
}

func TestSuiteRunFailureStillWritesMetrics(t *testing.T) {
	store := writeCorpus(t, smallCorpus())
	require.NoError(t, os.Remove(store.RawPath("XA1")))
	cfg := suiteConfig(t, store)

	suite := NewSuite(NewSuiteArgs{Binding: newFakeBinding(), Config: cfg, Report: &bytes.Buffer{}, Logger: quietLogger()})
	_, err := suite.Run(context.Background())
	assert.True(t, errors.Is(err, ErrFixtureMissing))

	prom, err := os.ReadFile(cfg.Output.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `j2kbench_runs_total{binding="fake",operation="encode",status="error"} 1`)

	results, _ := filepath.Glob(filepath.Join(cfg.Output.Dir, "*_results.json"))
	assert.Empty(t, results)
}
