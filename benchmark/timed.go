package benchmark

import (
	"image"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-j2kbench/codestream"
)

// Result is the outcome of one timed run.
type Result struct {
	Operation  Operation `json:"operation"`
	Iterations uint32    `json:"iterations"`
	// InputBytes is the size of the staged codestream or frame.
	InputBytes int `json:"inputBytes"`
	// ElapsedMsPerIteration is the wall time of the timed loop divided by Iterations.
	ElapsedMsPerIteration float64 `json:"elapsedMsPerIteration"`
	// Payload is the codestream (encode) or interleaved frame (decode). It is a copy
	// owned by the caller.
	Payload []byte `json:"-"`
	// Frame is reported by the decoder; nil for encode runs.
	Frame       *FrameInfo         `json:"frame,omitempty"`
	ImageOffset image.Point        `json:"imageOffset"`
	Header      *codestream.Header `json:"header,omitempty"`
}

// Elapsed returns the per-iteration time as a duration.
func (r *Result) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMsPerIteration * float64(time.Millisecond))
}

// TimedDecode stages stream into dec, calls Decode iterations times and returns the
// decoded frame with the mean time per call. Staging is not timed.
//
// Arguments:
//   - dec: A decoder instance owned by the caller. It is not released.
//   - stream: The codestream to decode. It is copied into the decoder.
//   - iterations: The number of Decode calls in the timed loop. Must be at least 1.
//
// Returns:
//   - *Result: The decoded frame, its FrameInfo and the timing.
//   - error: A precondition error, or a *CodecError.
func TimedDecode(dec Decoder, stream []byte, iterations uint32) (*Result, error) {
	if iterations == 0 {
		return nil, ErrInvalidIterations
	}
	if len(stream) == 0 {
		return nil, errors.Wrap(ErrEmptyInput, "codestream")
	}

	buf, err := dec.EncodedBuffer(len(stream))
	if err != nil {
		return nil, codecError(OperationDecode, StageStage, err)
	}
	if len(buf) != len(stream) {
		return nil, codecError(OperationDecode, StageStage,
			errors.Errorf("staging buffer is %d bytes, want %d", len(buf), len(stream)))
	}
	copy(buf, stream)
	if p, ok := dec.(Preparer); ok {
		if err := p.Prepare(); err != nil {
			return nil, codecError(OperationDecode, StagePrepare, err)
		}
	}

	elapsed, err := timeLoop(OperationDecode, dec.Decode, iterations)
	if err != nil {
		return nil, err
	}

	out := dec.DecodedBuffer()
	if len(out) == 0 {
		return nil, codecError(OperationDecode, StageRetrieve, errors.New("decoder produced no pixels"))
	}
	frame := dec.FrameInfo()
	res := &Result{
		Operation:             OperationDecode,
		Iterations:            iterations,
		InputBytes:            len(stream),
		ElapsedMsPerIteration: perIteration(elapsed, iterations),
		Payload:               slices.Clone(out),
		Frame:                 &frame,
		ImageOffset:           dec.ImageOffset(),
	}
	if hr, ok := dec.(HeaderReporter); ok {
		res.Header = hr.Header()
	}
	return res, nil
}

// TimedEncode stages raw into enc according to frame, calls Encode iterations times
// and returns the produced codestream with the mean time per call. Staging is not
// timed.
//
// Arguments:
//   - enc: An encoder instance owned by the caller. It is not released.
//   - raw: The interleaved frame. Its length must equal frame.FrameSize().
//   - frame: The layout of raw.
//   - iterations: The number of Encode calls in the timed loop. Must be at least 1.
//
// Returns:
//   - *Result: The codestream and the timing.
//   - error: A precondition error, or a *CodecError.
func TimedEncode(enc Encoder, raw []byte, frame FrameInfo, iterations uint32) (*Result, error) {
	if iterations == 0 {
		return nil, ErrInvalidIterations
	}
	if len(raw) == 0 {
		return nil, errors.Wrap(ErrEmptyInput, "raw frame")
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	if len(raw) != frame.FrameSize() {
		return nil, errors.Wrapf(ErrFrameSize, "%d bytes for %s, want %d", len(raw), frame, frame.FrameSize())
	}

	buf, err := enc.DecodedBuffer(frame)
	if err != nil {
		return nil, codecError(OperationEncode, StageStage, err)
	}
	if len(buf) != len(raw) {
		return nil, codecError(OperationEncode, StageStage,
			errors.Errorf("staging buffer is %d bytes, want %d", len(buf), len(raw)))
	}
	copy(buf, raw)
	if p, ok := enc.(Preparer); ok {
		if err := p.Prepare(); err != nil {
			return nil, codecError(OperationEncode, StagePrepare, err)
		}
	}

	elapsed, err := timeLoop(OperationEncode, enc.Encode, iterations)
	if err != nil {
		return nil, err
	}

	out := enc.EncodedBuffer()
	if len(out) == 0 {
		return nil, codecError(OperationEncode, StageRetrieve, errors.New("encoder produced no codestream"))
	}
	return &Result{
		Operation:             OperationEncode,
		Iterations:            iterations,
		InputBytes:            len(raw),
		ElapsedMsPerIteration: perIteration(elapsed, iterations),
		Payload:               slices.Clone(out),
	}, nil
}

// timeLoop runs fn iterations times between two monotonic clock readings. The first
// failing call stops the loop and no timing is returned.
func timeLoop(op Operation, fn func() error, iterations uint32) (time.Duration, error) {
	start := time.Now()
	for i := uint32(0); i < iterations; i++ {
		if err := fn(); err != nil {
			return 0, &CodecError{Op: op, Stage: StageRun, Iteration: int(i), Err: err}
		}
	}
	return time.Since(start), nil
}

func perIteration(elapsed time.Duration, iterations uint32) float64 {
	return float64(elapsed) / float64(time.Millisecond) / float64(iterations)
}
