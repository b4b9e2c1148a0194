package profiler

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sink [][]byte

func TestMeasure(t *testing.T) {
	boom := errors.New("boom")
	usage, err := Measure(func() error {
		for i := 0; i < 16; i++ {
			sink = append(sink, make([]byte, 64<<10))
		}
		return boom
	})
	sink = nil

	assert.Equal(t, boom, err)
	assert.GreaterOrEqual(t, usage.AllocatedBytes, uint64(16*64<<10))
	assert.NotZero(t, usage.Mallocs)
	assert.NotZero(t, usage.SysBytes)
}

func TestRuntimeProfilerOperations(t *testing.T) {
	rp := NewRuntimeProfiler()
	rp.RecordOperation("opencv/decode", 3*time.Millisecond)
	rp.RecordOperation("opencv/decode", time.Millisecond)
	rp.RecordOperation("opencv/encode", 5*time.Millisecond)
	rp.StartOperation("opencv/encode")()

	ops := rp.Operations()
	require.Len(t, ops, 2)

	assert.Equal(t, "opencv/decode", ops[0].Name)
	assert.Equal(t, int64(2), ops[0].Count)
	assert.Equal(t, time.Millisecond, ops[0].Min)
	assert.Equal(t, 3*time.Millisecond, ops[0].Max)
	assert.Equal(t, 2*time.Millisecond, ops[0].Mean)

	assert.Equal(t, int64(2), ops[1].Count)
	assert.Equal(t, 5*time.Millisecond, ops[1].Max)
	assert.Greater(t, rp.Uptime(), time.Duration(0))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.5 KiB", FormatBytes(1536))
	assert.Equal(t, "2.0 MiB", FormatBytes(2<<20))
}
