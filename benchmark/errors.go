package benchmark

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Typed errors below match them with errors.Is.
var (
	// ErrInitialization is the kind of every InitializationError.
	ErrInitialization = errors.New("codec binding initialization failed")
	// ErrFixtureMissing is the kind of every FixtureMissingError.
	ErrFixtureMissing = errors.New("fixture missing")
	// ErrCodecFailure is the kind of every CodecError.
	ErrCodecFailure = errors.New("codec failure")
)

// Precondition violations detected before the binding is touched.
var (
	ErrInvalidIterations = errors.New("iterations must be at least 1")
	ErrEmptyInput        = errors.New("input is empty")
	ErrFrameSize         = errors.New("raw frame size does not match descriptor")
	ErrInvalidDescriptor = errors.New("invalid fixture descriptor")
	ErrInvalidOptions    = errors.New("invalid codec options")
)

// InitializationError reports that a binding could not be loaded.
type InitializationError struct {
	Binding string
	Err     error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize %s binding: %v", e.Binding, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// Is matches ErrInitialization.
func (e *InitializationError) Is(target error) bool { return target == ErrInitialization }

// FixtureMissingError reports an absent or unreadable fixture file.
type FixtureMissingError struct {
	Fixture string
	Path    string
	Err     error
}

func (e *FixtureMissingError) Error() string {
	return fmt.Sprintf("fixture %s: %s: %v", e.Fixture, e.Path, e.Err)
}

func (e *FixtureMissingError) Unwrap() error { return e.Err }

// Is matches ErrFixtureMissing.
func (e *FixtureMissingError) Is(target error) bool { return target == ErrFixtureMissing }

// Stage names the step of a run in which a codec failure happened.
type Stage string

// Stages of a timed run.
const (
	StageCreate   Stage = "create"
	StageStage    Stage = "stage"
	StagePrepare  Stage = "prepare"
	StageRun      Stage = "run"
	StageRetrieve Stage = "retrieve"
	StageVerify   Stage = "verify"
	StageRelease  Stage = "release"
)

// CodecError reports that the binding rejected a buffer or failed mid-operation.
// Iteration is the zero-based index of the failing call when Stage is StageRun and
// -1 otherwise.
type CodecError struct {
	Op        Operation
	Stage     Stage
	Iteration int
	Err       error
}

func (e *CodecError) Error() string {
	if e.Stage == StageRun {
		return fmt.Sprintf("%s failed at iteration %d: %v", e.Op, e.Iteration, e.Err)
	}
	return fmt.Sprintf("%s failed during %s: %v", e.Op, e.Stage, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// Is matches ErrCodecFailure.
func (e *CodecError) Is(target error) bool { return target == ErrCodecFailure }

func codecError(op Operation, stage Stage, err error) *CodecError {
	return &CodecError{Op: op, Stage: stage, Iteration: -1, Err: err}
}
