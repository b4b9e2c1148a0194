package benchmark

import (
	"github.com/pkg/errors"
)

// releaser is the teardown half shared by Encoder and Decoder.
type releaser interface {
	Release() error
}

// WithEncoder creates an encoder, hands it to fn and releases it exactly once on
// every exit path, including a panic in fn.
//
// A failure from fn takes precedence over a failure to release. When fn succeeds
// and Release fails, the release failure is returned as a *CodecError.
func WithEncoder(b Binding, opts EncodeOptions, fn func(Encoder) error) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	enc, err := b.CreateEncoder(opts)
	if err != nil {
		return codecError(OperationEncode, StageCreate, err)
	}
	return scoped(OperationEncode, enc, func() error { return fn(enc) })
}

// WithDecoder is the decoder counterpart of WithEncoder.
func WithDecoder(b Binding, opts DecodeOptions, fn func(Decoder) error) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	dec, err := b.CreateDecoder(opts)
	if err != nil {
		return codecError(OperationDecode, StageCreate, err)
	}
	return scoped(OperationDecode, dec, func() error { return fn(dec) })
}

func scoped(op Operation, r releaser, fn func() error) (err error) {
	defer func() {
		rerr := r.Release()
		if rerr != nil && err == nil {
			err = codecError(op, StageRelease, errors.WithStack(rerr))
		}
	}()
	return fn()
}
