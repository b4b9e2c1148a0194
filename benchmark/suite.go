package benchmark

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-j2kbench/codestream"
	"github.com/nvr-ai/go-j2kbench/images"
	"github.com/nvr-ai/go-j2kbench/metrics"
	"github.com/nvr-ai/go-j2kbench/profiler"
)

// Suite runs a configured corpus through one binding and persists the outcome.
type Suite struct {
	binding  Binding
	cfg      *Config
	runID    string
	report   io.Writer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	profiler *profiler.RuntimeProfiler
	mu       sync.RWMutex
	records  []RunRecord
}

// NewSuiteArgs represents the arguments for creating a new benchmark suite.
type NewSuiteArgs struct {
	Binding Binding
	Config  *Config
	// Report receives the per-run lines and the summary. Defaults to os.Stdout.
	Report io.Writer
	Logger *slog.Logger
}

// NewSuite creates a new benchmark suite.
//
// Arguments:
//   - args: The arguments for creating a new benchmark suite.
//
// Returns:
//   - *Suite: The benchmark suite.
func NewSuite(args NewSuiteArgs) *Suite {
	if args.Report == nil {
		args.Report = os.Stdout
	}
	if args.Logger == nil {
		args.Logger = slog.Default()
	}
	runID := uuid.NewString()
	return &Suite{
		binding:  args.Binding,
		cfg:      args.Config,
		runID:    runID,
		report:   args.Report,
		logger:   args.Logger.With("run_id", runID),
		metrics:  metrics.NewMetrics(),
		profiler: profiler.NewRuntimeProfiler(),
		records:  make([]RunRecord, 0),
	}
}

// RunID returns the identifier used in output file names.
func (s *Suite) RunID() string {
	return s.runID
}

// Metrics returns the suite's metric registry.
func (s *Suite) Metrics() *metrics.Metrics {
	return s.metrics
}

// Run benchmarks the configured corpus. It stops at the first failure; the metrics
// textfile, when configured, is written either way.
func (s *Suite) Run(ctx context.Context) ([]Summary, error) {
	fixtures, err := s.cfg.ResolveFixtures()
	if err != nil {
		return nil, err
	}

	s.logger.Info("starting benchmark",
		"binding", s.binding.Name(), "fixtures", len(fixtures), "iterations", s.cfg.Iterations)

	runner := NewRunner(s.binding, s.cfg.Store(), RunnerOptions{
		Encode:           s.cfg.Encode,
		Decode:           s.cfg.Decode,
		Operations:       s.cfg.Operations,
		StrictFrameCheck: s.cfg.StrictFrameCheck,
		Report:           s.report,
		Logger:           s.logger,
		Metrics:          s.metrics,
		Profiler:         s.profiler,
		OnResult:         s.handleResult,
	})
	_, runErr := runner.Run(ctx, fixtures, s.cfg.Iterations)

	if s.cfg.Output.MetricsFile != "" {
		if err := s.metrics.WriteTextfile(s.cfg.Output.MetricsFile); err != nil {
			s.logger.Error("failed to write metrics", "error", err)
			if runErr == nil {
				runErr = err
			}
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	summaries := Summarize(s.Records())
	fmt.Fprintln(s.report)
	WriteSummary(s.report, summaries)
	for _, op := range s.profiler.Operations() {
		s.logger.Debug("operation totals", "operation", op.Name, "count", op.Count, "total", op.Total, "mean", op.Mean)
	}
	s.logger.Info("benchmark complete", "elapsed", s.profiler.Uptime(), "memory", s.profiler.SessionUsage().String())

	if s.cfg.Output.SaveResults {
		if err := s.SaveResults(summaries); err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

func (s *Suite) handleResult(nr NamedResult) error {
	rec := NewRunRecord(s.runID, nr)
	rec.Checksum = images.ComputeChecksum(nr.Payload)

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	if s.cfg.Output.Artifacts {
		if err := s.writeArtifact(nr); err != nil {
			return err
		}
	}
	if s.cfg.Output.Previews && nr.Operation == OperationDecode {
		if err := s.writePreview(nr); err != nil {
			return err
		}
	}
	return nil
}

// runDir returns <output>/<run id>/<sub>, creating it.
func (s *Suite) runDir(sub string) (string, error) {
	dir := filepath.Join(s.cfg.Output.Dir, s.runID, sub, s.binding.Name())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "failed to create output directory")
	}
	return dir, nil
}

func (s *Suite) writeArtifact(nr NamedResult) error {
	dir, err := s.runDir("artifacts")
	if err != nil {
		return err
	}
	name := nr.Fixture.Name + RawExt
	if nr.Operation == OperationEncode {
		name = nr.Fixture.Name + CodestreamExt
		if codestream.IsJP2(nr.Payload) {
			name = nr.Fixture.Name + JP2Ext
		}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, nr.Payload, 0o644); err != nil {
		return errors.Wrap(err, "failed to write artifact")
	}
	s.logger.Debug("wrote artifact", "path", path, "bytes", len(nr.Payload))
	return nil
}

func (s *Suite) writePreview(nr NamedResult) error {
	frame := *nr.Frame
	img, err := images.ToImage(nr.Payload, images.Layout{
		Width:         int(frame.Width),
		Height:        int(frame.Height),
		BitsPerSample: frame.BitsPerSample,
		Components:    int(frame.ComponentCount),
		Signed:        frame.IsSigned,
	})
	if err != nil {
		s.logger.Warn("skipping preview", "fixture", nr.Fixture.Name, "error", err)
		return nil
	}
	dir, err := s.runDir("previews")
	if err != nil {
		return err
	}
	return images.WritePNG(filepath.Join(dir, nr.Fixture.Name+".png"), images.Preview(img, s.cfg.Output.PreviewMaxDimension))
}

// Records returns all run records collected so far.
func (s *Suite) Records() []RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]RunRecord, len(s.records))
	copy(records, s.records)
	return records
}

// ResultsFile is the JSON document written by SaveResults.
type ResultsFile struct {
	RunID     string      `json:"run_id"`
	Timestamp time.Time   `json:"timestamp"`
	System    SystemInfo  `json:"system"`
	Config    *Config     `json:"config"`
	Records   []RunRecord `json:"records"`
	Summaries []Summary   `json:"summaries"`
}

// SaveResults persists benchmark results to filesystem.
func (s *Suite) SaveResults(summaries []Summary) error {
	records := s.Records()

	if err := os.MkdirAll(s.cfg.Output.Dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	base := fmt.Sprintf("benchmark_%s_%s_%s", s.binding.Name(), timestamp, s.runID[:8])
	resultsFile := filepath.Join(s.cfg.Output.Dir, base+"_results.json")

	data, err := json.MarshalIndent(ResultsFile{
		RunID:     s.runID,
		Timestamp: time.Now(),
		System:    CurrentSystemInfo(s.binding),
		Config:    s.cfg,
		Records:   records,
		Summaries: summaries,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal results")
	}

	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write results file")
	}

	summaryFile := filepath.Join(s.cfg.Output.Dir, base+"_summary.csv")
	if err := saveSummaryCSV(summaryFile, records); err != nil {
		return errors.Wrap(err, "failed to save summary CSV")
	}

	s.logger.Info("results saved", "results", resultsFile, "summary", summaryFile)
	return nil
}

func saveSummaryCSV(filename string, records []RunRecord) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{
		"Binding", "Fixture", "Operation", "Width", "Height", "Bits", "Components", "Signed",
		"Iterations", "Ms_Per_Iteration", "Input_Bytes", "Output_Bytes", "Compression_Ratio",
		"MP_Per_Second", "MB_Per_Second", "Allocated_MB", "Frame_Mismatch",
	}); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.Binding,
			r.Fixture,
			string(r.Operation),
			strconv.FormatUint(uint64(r.Frame.Width), 10),
			strconv.FormatUint(uint64(r.Frame.Height), 10),
			strconv.Itoa(int(r.Frame.BitsPerSample)),
			strconv.FormatUint(uint64(r.Frame.ComponentCount), 10),
			strconv.FormatBool(r.Frame.IsSigned),
			strconv.FormatUint(uint64(r.Iterations), 10),
			fmt.Sprintf("%.4f", r.MsPerIteration),
			strconv.Itoa(r.InputBytes),
			strconv.Itoa(r.OutputBytes),
			fmt.Sprintf("%.3f", r.CompressionRatio),
			fmt.Sprintf("%.2f", r.MegapixelsPerSecond),
			fmt.Sprintf("%.2f", r.MegabytesPerSecond),
			fmt.Sprintf("%.2f", float64(r.Memory.AllocatedBytes)/(1024*1024)),
			strconv.FormatBool(r.FrameMismatch),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
