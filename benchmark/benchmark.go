// Package benchmark - Functionality for benchmarking JPEG 2000 codec bindings.
package benchmark

import (
	"fmt"
	"image"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-j2kbench/codestream"
)

// Operation identifies the codec entry point a run exercises.
type Operation string

const (
	// OperationEncode times RawFrame -> EncodedStream.
	OperationEncode Operation = "encode"
	// OperationDecode times EncodedStream -> RawFrame.
	OperationDecode Operation = "decode"
)

// Title returns the capitalised operation name used in report lines.
func (o Operation) Title() string {
	switch o {
	case OperationEncode:
		return "Encode"
	case OperationDecode:
		return "Decode"
	default:
		return string(o)
	}
}

// FrameInfo describes the layout of an uncompressed frame.
type FrameInfo struct {
	Width          uint32 `json:"width"          yaml:"width"          mapstructure:"width"`
	Height         uint32 `json:"height"         yaml:"height"         mapstructure:"height"`
	BitsPerSample  uint8  `json:"bitsPerSample"  yaml:"bitsPerSample"  mapstructure:"bitsPerSample"`
	ComponentCount uint32 `json:"componentCount" yaml:"componentCount" mapstructure:"componentCount"`
	IsSigned       bool   `json:"isSigned"       yaml:"isSigned"       mapstructure:"isSigned"`
}

// BytesPerSample returns ceil(BitsPerSample/8).
func (f FrameInfo) BytesPerSample() int {
	return (int(f.BitsPerSample) + 7) / 8
}

// FrameSize returns the number of bytes an interleaved frame occupies.
func (f FrameInfo) FrameSize() int {
	return int(f.Width) * int(f.Height) * int(f.ComponentCount) * f.BytesPerSample()
}

// Validate checks that the frame describes something a codec can stage.
func (f FrameInfo) Validate() error {
	switch {
	case f.Width == 0 || f.Height == 0:
		return errors.Wrapf(ErrInvalidDescriptor, "dimensions %dx%d", f.Width, f.Height)
	case f.ComponentCount == 0:
		return errors.Wrap(ErrInvalidDescriptor, "componentCount must be at least 1")
	case f.BitsPerSample < 2 || f.BitsPerSample > 16:
		return errors.Wrapf(ErrInvalidDescriptor, "bitsPerSample %d outside 2..16", f.BitsPerSample)
	}
	return nil
}

// AtDecompositionLevel returns the frame produced when decoding level wavelet
// decompositions below full resolution. Level 0 is full resolution.
func (f FrameInfo) AtDecompositionLevel(level int) FrameInfo {
	out := f
	for ; level > 0; level-- {
		out.Width = (out.Width + 1) / 2
		out.Height = (out.Height + 1) / 2
	}
	return out
}

// String renders the frame as "512x512 16-bit signed x1".
func (f FrameInfo) String() string {
	sign := "unsigned"
	if f.IsSigned {
		sign = "signed"
	}
	return fmt.Sprintf("%dx%d %d-bit %s x%d", f.Width, f.Height, f.BitsPerSample, sign, f.ComponentCount)
}

// FrameInfoFromHeader converts a parsed main header into a FrameInfo.
func FrameInfoFromHeader(h *codestream.Header) FrameInfo {
	return FrameInfo{
		Width:          h.Width,
		Height:         h.Height,
		BitsPerSample:  h.BitsPerSample(),
		ComponentCount: h.ComponentCount(),
		IsSigned:       h.IsSigned(),
	}
}

// Dimensions is a width/height pair used by encoder options.
type Dimensions struct {
	Width  int `json:"width"  yaml:"width"  mapstructure:"width"`
	Height int `json:"height" yaml:"height" mapstructure:"height"`
}

// IsZero reports whether no dimensions were set.
func (d Dimensions) IsZero() bool {
	return d.Width == 0 && d.Height == 0
}

// EncodeOptions carries the coding parameters an encoder instance is created with.
// Zero values leave the binding's defaults in place.
type EncodeOptions struct {
	// Lossless selects the reversible 5/3 wavelet; false selects the irreversible 9/7.
	Lossless bool `json:"lossless" yaml:"lossless" mapstructure:"lossless"`
	// Decompositions is the number of wavelet decomposition levels.
	Decompositions int `json:"decompositions" yaml:"decompositions" mapstructure:"decompositions"`
	// ProgressionOrder is one of LRCP, RLCP, RPCL, PCRL, CPRL.
	ProgressionOrder string      `json:"progressionOrder" yaml:"progressionOrder" mapstructure:"progressionOrder"`
	ImageOffset      image.Point `json:"imageOffset"      yaml:"imageOffset"      mapstructure:"imageOffset"`
	TileSize         Dimensions  `json:"tileSize"         yaml:"tileSize"         mapstructure:"tileSize"`
	TileOffset       image.Point `json:"tileOffset"       yaml:"tileOffset"       mapstructure:"tileOffset"`
	BlockDimensions  Dimensions  `json:"blockDimensions"  yaml:"blockDimensions"  mapstructure:"blockDimensions"`
	// CompressionRatio requests a target rate; 0 means no rate constraint.
	CompressionRatio float64 `json:"compressionRatio" yaml:"compressionRatio" mapstructure:"compressionRatio"`
	// ColorTransform enables the multi-component transform for 3-component frames.
	ColorTransform bool `json:"colorTransform" yaml:"colorTransform" mapstructure:"colorTransform"`
}

// DefaultEncodeOptions returns lossless coding with 5 decompositions and 64x64 blocks.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Lossless:        true,
		Decompositions:  5,
		BlockDimensions: Dimensions{Width: 64, Height: 64},
	}
}

// Validate checks the option ranges defined by ISO/IEC 15444-1.
func (o EncodeOptions) Validate() error {
	if o.Decompositions < 0 || o.Decompositions > 32 {
		return errors.Wrapf(ErrInvalidOptions, "decompositions %d outside 0..32", o.Decompositions)
	}
	if o.ProgressionOrder != "" {
		if _, ok := codestream.ParseProgressionOrder(o.ProgressionOrder); !ok {
			return errors.Wrapf(ErrInvalidOptions, "unknown progression order %q", o.ProgressionOrder)
		}
	}
	if !o.BlockDimensions.IsZero() {
		w, h := o.BlockDimensions.Width, o.BlockDimensions.Height
		if !isPowerOfTwo(w) || !isPowerOfTwo(h) || w < 4 || h < 4 || w > 1024 || h > 1024 || w*h > 4096 {
			return errors.Wrapf(ErrInvalidOptions, "block dimensions %dx%d", w, h)
		}
	}
	if o.TileSize.Width < 0 || o.TileSize.Height < 0 {
		return errors.Wrap(ErrInvalidOptions, "negative tile size")
	}
	if o.ImageOffset.X < 0 || o.ImageOffset.Y < 0 || o.TileOffset.X < 0 || o.TileOffset.Y < 0 {
		return errors.Wrap(ErrInvalidOptions, "negative offset")
	}
	if o.CompressionRatio < 0 {
		return errors.Wrapf(ErrInvalidOptions, "compression ratio %g", o.CompressionRatio)
	}
	return nil
}

// DecodeOptions selects a reduced resolution or a subset of quality layers.
type DecodeOptions struct {
	// DecompositionLevel discards that many resolution levels; 0 decodes full resolution.
	DecompositionLevel int `json:"decompositionLevel" yaml:"decompositionLevel" mapstructure:"decompositionLevel"`
	// DecodeLayer limits decoding to the first N quality layers; 0 decodes all layers.
	DecodeLayer int `json:"decodeLayer" yaml:"decodeLayer" mapstructure:"decodeLayer"`
}

// Validate rejects negative levels and layers.
func (o DecodeOptions) Validate() error {
	if o.DecompositionLevel < 0 || o.DecodeLayer < 0 {
		return errors.Wrapf(ErrInvalidOptions, "decompositionLevel=%d decodeLayer=%d", o.DecompositionLevel, o.DecodeLayer)
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
