package benchmark

import (
	"image"

	"github.com/nvr-ai/go-j2kbench/codestream"
)

// Binding is a loaded codec module. It is created once per process by an explicit
// initialisation call and handed to the driver; Close releases module-wide state.
type Binding interface {
	// Name identifies the binding in reports and metrics.
	Name() string
	// CreateEncoder allocates an encoder instance owning its own staging buffers.
	CreateEncoder(opts EncodeOptions) (Encoder, error)
	// CreateDecoder allocates a decoder instance owning its own staging buffers.
	CreateDecoder(opts DecodeOptions) (Decoder, error)
	// Close releases the module. No instance may be used afterwards.
	Close() error
}

// Encoder compresses the frame staged in its decoded buffer.
//
// Buffers returned by an Encoder belong to the binding and stay valid only until the
// next call on the instance or until Release.
type Encoder interface {
	// DecodedBuffer resizes the staging buffer for frame and returns it for writing.
	DecodedBuffer(frame FrameInfo) ([]byte, error)
	// Encode compresses the staged frame. It may be called repeatedly.
	Encode() error
	// EncodedBuffer returns the codestream produced by the last Encode.
	EncodedBuffer() []byte
	// Release frees the instance's native resources.
	Release() error
}

// Decoder decompresses the codestream staged in its encoded buffer.
//
// Buffers returned by a Decoder belong to the binding and stay valid only until the
// next call on the instance or until Release.
type Decoder interface {
	// EncodedBuffer resizes the staging buffer to size bytes and returns it for writing.
	EncodedBuffer(size int) ([]byte, error)
	// Decode decompresses the staged codestream. It may be called repeatedly.
	Decode() error
	// DecodedBuffer returns the interleaved pixels produced by the last Decode.
	DecodedBuffer() []byte
	// FrameInfo describes the last decoded frame.
	FrameInfo() FrameInfo
	// ImageOffset returns the image origin on the reference grid.
	ImageOffset() image.Point
	// Release frees the instance's native resources.
	Release() error
}

// Preparer is implemented by instances that must move staged bytes into codec-owned
// storage before the first operation. The driver calls Prepare once after staging,
// outside the timed interval.
type Preparer interface {
	Prepare() error
}

// HeaderReporter is implemented by decoders that expose the parsed main header of
// the last decoded codestream.
type HeaderReporter interface {
	Header() *codestream.Header
}
