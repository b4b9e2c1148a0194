package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-j2kbench/metrics"
	"github.com/nvr-ai/go-j2kbench/profiler"
)

// NamedResult pairs a fixture with the outcome of one timed run.
type NamedResult struct {
	Fixture FixtureDescriptor `json:"fixture"`
	Binding string            `json:"binding"`
	*Result
	Memory profiler.Usage `json:"memory"`
	// FrameMismatch is set when a decode reported a FrameInfo that differs from the
	// fixture descriptor.
	FrameMismatch bool `json:"frameMismatch,omitempty"`
}

// RunnerOptions configures a Runner. Zero values select the defaults.
type RunnerOptions struct {
	// Encode and Decode are the options each instance is created with.
	Encode EncodeOptions
	Decode DecodeOptions
	// Operations restricts the run; empty runs encode then decode.
	Operations []Operation
	// StrictFrameCheck turns a decoded FrameInfo mismatch into a CodecError.
	StrictFrameCheck bool
	// Report receives one line per run. Defaults to os.Stdout.
	Report io.Writer
	Logger *slog.Logger
	// Metrics, when set, receives one observation per run.
	Metrics *metrics.Metrics
	// Profiler, when set, accumulates per-operation wall times.
	Profiler *profiler.RuntimeProfiler
	// OnResult, when set, is called after every successful run.
	OnResult func(NamedResult) error
}

// Runner drives a corpus through one binding, strictly sequentially.
type Runner struct {
	binding Binding
	store   FixtureStore
	opts    RunnerOptions
}

// NewRunner creates a corpus runner.
//
// Arguments:
//   - binding: The loaded codec binding. The runner never closes it.
//   - store: Resolves fixture names to raw frames and codestreams.
//   - opts: Runner options.
//
// Returns:
//   - *Runner: The runner.
func NewRunner(binding Binding, store FixtureStore, opts RunnerOptions) *Runner {
	if opts.Report == nil {
		opts.Report = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if len(opts.Operations) == 0 {
		opts.Operations = []Operation{OperationEncode, OperationDecode}
	}
	return &Runner{binding: binding, store: store, opts: opts}
}

// Run benchmarks every fixture in order. For each fixture it encodes the raw frame,
// then decodes the reference codestream; the two are independent. The first failure
// stops the corpus and is returned along with the results gathered so far. The
// context is checked between runs only.
func (r *Runner) Run(ctx context.Context, fixtures []FixtureDescriptor, iterations uint32) ([]NamedResult, error) {
	if iterations == 0 {
		return nil, ErrInvalidIterations
	}
	for _, f := range fixtures {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}

	log := r.opts.Logger.With("binding", r.binding.Name())
	results := make([]NamedResult, 0, len(fixtures)*len(r.opts.Operations))

	for _, f := range fixtures {
		for _, op := range r.opts.Operations {
			if err := ctx.Err(); err != nil {
				return results, errors.Wrap(err, "corpus run interrupted")
			}

			log.Debug("starting run", "fixture", f.Name, "operation", op, "iterations", iterations)
			var (
				nr  NamedResult
				err error
			)
			switch op {
			case OperationEncode:
				nr, err = r.encodeFixture(f, iterations)
			case OperationDecode:
				nr, err = r.decodeFixture(f, iterations)
			default:
				err = errors.Wrapf(ErrInvalidOptions, "unknown operation %q", op)
			}
			if err != nil {
				if r.opts.Metrics != nil {
					r.opts.Metrics.ObserveFailure(r.binding.Name(), string(op))
				}
				log.Error("run failed", "fixture", f.Name, "operation", op, "error", err)
				return results, errors.Wrapf(err, "%s %s", op, f.Name)
			}

			r.report(nr)
			results = append(results, nr)
			if r.opts.OnResult != nil {
				if err := r.opts.OnResult(nr); err != nil {
					return results, errors.Wrapf(err, "handle %s result for %s", op, f.Name)
				}
			}
		}
	}

	return results, nil
}

func (r *Runner) encodeFixture(f FixtureDescriptor, iterations uint32) (NamedResult, error) {
	raw, err := r.store.RawFrame(f.Name)
	if err != nil {
		return NamedResult{}, err
	}

	var res *Result
	usage, err := profiler.Measure(func() error {
		return WithEncoder(r.binding, r.opts.Encode, func(enc Encoder) error {
			var err error
			res, err = TimedEncode(enc, raw, f.FrameInfo, iterations)
			return err
		})
	})
	if err != nil {
		return NamedResult{}, err
	}
	return NamedResult{Fixture: f, Binding: r.binding.Name(), Result: res, Memory: usage}, nil
}

func (r *Runner) decodeFixture(f FixtureDescriptor, iterations uint32) (NamedResult, error) {
	stream, err := r.store.Codestream(f.Name)
	if err != nil {
		return NamedResult{}, err
	}

	var res *Result
	usage, err := profiler.Measure(func() error {
		return WithDecoder(r.binding, r.opts.Decode, func(dec Decoder) error {
			var err error
			res, err = TimedDecode(dec, stream, iterations)
			return err
		})
	})
	if err != nil {
		return NamedResult{}, err
	}

	nr := NamedResult{Fixture: f, Binding: r.binding.Name(), Result: res, Memory: usage}
	want := f.FrameInfo.AtDecompositionLevel(r.opts.Decode.DecompositionLevel)
	if *res.Frame != want {
		if r.opts.StrictFrameCheck {
			return NamedResult{}, codecError(OperationDecode, StageVerify,
				errors.Errorf("decoded %s, fixture describes %s", res.Frame, want))
		}
		nr.FrameMismatch = true
		r.opts.Logger.Warn("decoded frame differs from fixture",
			"binding", r.binding.Name(), "fixture", f.Name, "decoded", res.Frame.String(), "expected", want.String())
	}
	return nr, nil
}

func (r *Runner) report(nr NamedResult) {
	fmt.Fprintf(r.opts.Report, "%s of %s took %f ms (%d iterations)\n",
		nr.Operation.Title(), nr.Fixture.Name, nr.ElapsedMsPerIteration, nr.Iterations)

	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveRun(metrics.Run{
			Binding:        nr.Binding,
			Operation:      string(nr.Operation),
			Fixture:        nr.Fixture.Name,
			MsPerIteration: nr.ElapsedMsPerIteration,
			PayloadBytes:   len(nr.Payload),
			Pixels:         uint64(nr.Fixture.Width) * uint64(nr.Fixture.Height),
		})
	}
	if r.opts.Profiler != nil {
		r.opts.Profiler.RecordOperation(nr.Binding+"/"+string(nr.Operation), nr.Elapsed())
	}
}
