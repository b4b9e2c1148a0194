package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-j2kbench/benchmark"
	"github.com/nvr-ai/go-j2kbench/benchmark/engines"
)

var (
	rawDir = filepath.Join("..", "..", "test", "fixtures", "raw")
	j2kDir = filepath.Join("..", "..", "test", "fixtures", "j2k")
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// loadBinding returns the named binding or skips when it cannot be initialised here.
func loadBinding(tb testing.TB, name string) benchmark.Binding {
	tb.Helper()
	b, err := engines.Load(context.Background(), benchmark.BindingConfig{Name: name, WorkDir: tb.TempDir()}, quietLogger())
	if err != nil {
		tb.Skipf("Skipping %s - binding not available: %v", name, err)
	}
	tb.Cleanup(func() { b.Close() })
	return b
}

func readFixture(tb testing.TB, path string) []byte {
	tb.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		tb.Skipf("Skipping - fixture not available: %v", err)
	}
	return data
}

func TestDecodeCT1(t *testing.T) {
	stream := readFixture(t, filepath.Join(j2kDir, "CT1.j2k"))
	want := benchmark.FrameInfo{Width: 512, Height: 512, BitsPerSample: 16, ComponentCount: 1, IsSigned: true}

	for _, name := range engines.Names() {
		t.Run(name, func(t *testing.T) {
			b := loadBinding(t, name)

			var result *benchmark.Result
			require.NoError(t, benchmark.WithDecoder(b, benchmark.DecodeOptions{}, func(dec benchmark.Decoder) error {
				var err error
				result, err = benchmark.TimedDecode(dec, stream, 1)
				return err
			}))

			assert.Len(t, result.Payload, want.FrameSize())
			assert.Equal(t, want.Width, result.Frame.Width)
			assert.Equal(t, want.Height, result.Frame.Height)
			assert.Equal(t, want.ComponentCount, result.Frame.ComponentCount)
			if name == engines.NameOpenJPEG {
				assert.Equal(t, want, *result.Frame)
			}
		})
	}
}

func TestEncodeCT1Losslessly(t *testing.T) {
	raw := readFixture(t, filepath.Join(rawDir, "CT1.RAW"))
	frame := benchmark.DefaultCorpus()[0].FrameInfo
	b := loadBinding(t, engines.NameOpenJPEG)

	var encoded *benchmark.Result
	require.NoError(t, benchmark.WithEncoder(b, benchmark.DefaultEncodeOptions(), func(enc benchmark.Encoder) error {
		var err error
		encoded, err = benchmark.TimedEncode(enc, raw, frame, 1)
		return err
	}))
	assert.Less(t, len(encoded.Payload), len(raw))

	var decoded *benchmark.Result
	require.NoError(t, benchmark.WithDecoder(b, benchmark.DecodeOptions{}, func(dec benchmark.Decoder) error {
		var err error
		decoded, err = benchmark.TimedDecode(dec, encoded.Payload, 1)
		return err
	}))
	assert.Equal(t, raw, decoded.Payload)
}

// BenchmarkDecode runs every available fixture through each binding with b.N
// iterations per timed call.
func BenchmarkDecode(b *testing.B) {
	for _, name := range engines.Names() {
		b.Run(name, func(b *testing.B) {
			binding := loadBinding(b, name)
			for _, f := range benchmark.DefaultCorpus() {
				stream, err := os.ReadFile(filepath.Join(j2kDir, f.Name+benchmark.CodestreamExt))
				if err != nil {
					continue
				}
				b.Run(f.Name, func(b *testing.B) {
					err := benchmark.WithDecoder(binding, benchmark.DecodeOptions{}, func(dec benchmark.Decoder) error {
						b.ResetTimer()
						result, err := benchmark.TimedDecode(dec, stream, uint32(b.N))
						if err != nil {
							return err
						}
						b.StopTimer()
						b.ReportMetric(result.ElapsedMsPerIteration, "ms/decode")
						return nil
					})
					if err != nil {
						b.Fatalf("Decode benchmark failed: %v", err)
					}
				})
			}
		})
	}
}
