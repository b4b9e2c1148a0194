package benchmark

import (
	"runtime"
	"time"

	"github.com/nvr-ai/go-j2kbench/profiler"
)

// RunRecord is the persisted form of one timed run. CompressionRatio is raw frame
// size over codestream size.
type RunRecord struct {
	RunID               string         `json:"run_id"`
	Timestamp           time.Time      `json:"timestamp"`
	Binding             string         `json:"binding"`
	Fixture             string         `json:"fixture"`
	Operation           Operation      `json:"operation"`
	Frame               FrameInfo      `json:"frame"`
	Iterations          uint32         `json:"iterations"`
	MsPerIteration      float64        `json:"ms_per_iteration"`
	InputBytes          int            `json:"input_bytes"`
	OutputBytes         int            `json:"output_bytes"`
	CompressionRatio    float64        `json:"compression_ratio"`
	MegapixelsPerSecond float64        `json:"megapixels_per_second"`
	MegabytesPerSecond  float64        `json:"megabytes_per_second"`
	Decoded             *FrameInfo     `json:"decoded,omitempty"`
	FrameMismatch       bool           `json:"frame_mismatch,omitempty"`
	Memory              profiler.Usage `json:"memory"`
	Checksum            string         `json:"checksum,omitempty"`
}

// NewRunRecord flattens a named result. Throughput is computed against the
// uncompressed frame for both operations.
func NewRunRecord(runID string, nr NamedResult) RunRecord {
	rec := RunRecord{
		RunID:          runID,
		Timestamp:      time.Now(),
		Binding:        nr.Binding,
		Fixture:        nr.Fixture.Name,
		Operation:      nr.Operation,
		Frame:          nr.Fixture.FrameInfo,
		Iterations:     nr.Iterations,
		MsPerIteration: nr.ElapsedMsPerIteration,
		InputBytes:     nr.InputBytes,
		OutputBytes:    len(nr.Payload),
		Decoded:        nr.Frame,
		FrameMismatch:  nr.FrameMismatch,
		Memory:         nr.Memory,
	}

	rawBytes, codedBytes := nr.InputBytes, len(nr.Payload)
	if nr.Operation == OperationDecode {
		rawBytes, codedBytes = len(nr.Payload), nr.InputBytes
	}
	if codedBytes > 0 {
		rec.CompressionRatio = float64(rawBytes) / float64(codedBytes)
	}
	if nr.ElapsedMsPerIteration > 0 {
		seconds := nr.ElapsedMsPerIteration / 1000
		pixels := float64(nr.Fixture.Width) * float64(nr.Fixture.Height)
		rec.MegapixelsPerSecond = pixels / 1e6 / seconds
		rec.MegabytesPerSecond = float64(rawBytes) / (1024 * 1024) / seconds
	}
	return rec
}

// SystemInfo describes the host a run was taken on.
type SystemInfo struct {
	GOOS      string `json:"goos"`
	GOARCH    string `json:"goarch"`
	NumCPU    int    `json:"num_cpu"`
	GoVersion string `json:"go_version"`
	// BindingVersion is reported by bindings that implement Versioner.
	BindingVersion string `json:"binding_version,omitempty"`
}

// Versioner is implemented by bindings that can report the native library version.
type Versioner interface {
	Version() string
}

// CurrentSystemInfo reads the runtime for b's host.
func CurrentSystemInfo(b Binding) SystemInfo {
	info := SystemInfo{
		GOOS:      runtime.GOOS,
		GOARCH:    runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
	}
	if v, ok := b.(Versioner); ok {
		info.BindingVersion = v.Version()
	}
	return info
}
