package metrics

import (
	"os"
	"path/filepath"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	assert.NotNil(t, m.Registry)
	assert.NotNil(t, m.MsPerIteration)
	assert.NotNil(t, m.PayloadBytes)
	assert.NotNil(t, m.Throughput)
	assert.NotNil(t, m.RunsTotal)
	assert.NotNil(t, m.RunDuration)
}

func TestObserveRun(t *testing.T) {
	m := NewMetrics()
	m.ObserveRun(Run{
		Binding:        "opencv",
		Operation:      "decode",
		Fixture:        "CT1",
		MsPerIteration: 4,
		PayloadBytes:   512 * 512 * 2,
		Pixels:         512 * 512,
	})
	m.ObserveFailure("opencv", "encode")

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				values[mf.GetName()] = metric.GetGauge().GetValue()
			case metric.GetCounter() != nil:
				values[mf.GetName()+"/"+labelValue(metric.GetLabel(), "status")] = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				values[mf.GetName()] = float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.Equal(t, 4.0, values["j2kbench_ms_per_iteration"])
	assert.Equal(t, float64(512*512*2), values["j2kbench_payload_bytes"])
	assert.InDelta(t, 65.536, values["j2kbench_throughput_megapixels_per_second"], 1e-9)
	assert.Equal(t, 1.0, values["j2kbench_runs_total/ok"])
	assert.Equal(t, 1.0, values["j2kbench_runs_total/error"])
	assert.Equal(t, 1.0, values["j2kbench_iteration_duration_seconds"])
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.ObserveRun(Run{Binding: "openjpeg", Operation: "encode", Fixture: "MR1", MsPerIteration: 12.5, PayloadBytes: 1000})

	path := filepath.Join(t.TempDir(), "j2kbench.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `j2kbench_ms_per_iteration{binding="openjpeg",fixture="MR1",operation="encode"} 12.5`)
	assert.Contains(t, string(data), `j2kbench_runs_total{binding="openjpeg",operation="encode",status="ok"} 1`)
}

func TestWriteTextfileBadPath(t *testing.T) {
	m := NewMetrics()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "j2kbench.prom"))
	assert.Error(t, err)
}

func labelValue(labels []*dto.LabelPair, name string) string {
	for _, l := range labels {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
