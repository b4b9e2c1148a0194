package engines

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-j2kbench/benchmark"
	"github.com/nvr-ai/go-j2kbench/codestream"
)

// imwriteJPEG2000CompressionX1000 is cv::IMWRITE_JPEG2000_COMPRESSION_X1000. A value
// of 1000 selects reversible coding.
const imwriteJPEG2000CompressionX1000 = 272

// Matrix depths as encoded in the low bits of a gocv.MatType.
const (
	depthMask = 7
	depth8U   = 0
	depth8S   = 1
	depth16S  = 3
)

// OpenCV drives the JPEG 2000 codec compiled into OpenCV's imgcodecs module.
//
// OpenCV exposes no coding parameters besides a compression rate, so every other
// EncodeOptions field is ignored, and decoders reject reduced resolutions and layers.
type OpenCV struct {
	logger  *slog.Logger
	version string
}

// NewOpenCV checks that imgcodecs can write ".jp2" by encoding a small probe frame.
func NewOpenCV(ctx context.Context, _ benchmark.BindingConfig, logger *slog.Logger) (*OpenCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	probe := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC1)
	defer probe.Close()

	buf, err := gocv.IMEncode(gocv.FileExt(".jp2"), probe)
	if err != nil {
		return nil, errors.Wrap(err, "opencv was built without JPEG 2000 support")
	}
	defer buf.Close()
	if buf.Len() == 0 {
		return nil, errors.New("opencv produced an empty JPEG 2000 probe")
	}

	return &OpenCV{
		logger:  logger,
		version: fmt.Sprintf("opencv %s (gocv %s)", gocv.OpenCVVersion(), gocv.Version()),
	}, nil
}

// Name implements benchmark.Binding.
func (o *OpenCV) Name() string { return NameOpenCV }

// Version implements benchmark.Versioner.
func (o *OpenCV) Version() string { return o.version }

// Close implements benchmark.Binding. OpenCV keeps no module-wide state to release.
func (o *OpenCV) Close() error { return nil }

// CreateEncoder implements benchmark.Binding.
func (o *OpenCV) CreateEncoder(opts benchmark.EncodeOptions) (benchmark.Encoder, error) {
	rate := 1000
	if !opts.Lossless && opts.CompressionRatio > 0 {
		rate = int(1000 / opts.CompressionRatio)
		if rate < 1 {
			rate = 1
		}
	}
	if opts.ProgressionOrder != "" || !opts.TileSize.IsZero() || opts.ColorTransform {
		o.logger.Debug("opencv ignores progression, tiling and colour transform options")
	}
	return &openCVEncoder{params: []int{imwriteJPEG2000CompressionX1000, rate}}, nil
}

// CreateDecoder implements benchmark.Binding.
func (o *OpenCV) CreateDecoder(opts benchmark.DecodeOptions) (benchmark.Decoder, error) {
	if opts.DecompositionLevel != 0 || opts.DecodeLayer != 0 {
		return nil, errors.Wrap(ErrUnsupported, "opencv always decodes every layer at full resolution")
	}
	return &openCVDecoder{mat: gocv.NewMat()}, nil
}

type openCVEncoder struct {
	params []int
	frame  benchmark.FrameInfo
	staged []byte
	// pixels backs mat and must outlive it.
	pixels []byte
	mat    gocv.Mat
	hasMat bool
	out    *gocv.NativeByteBuffer
}

func (e *openCVEncoder) DecodedBuffer(frame benchmark.FrameInfo) ([]byte, error) {
	if err := checkFrame(frame, 3); err != nil {
		return nil, err
	}
	if frame.ComponentCount == 2 {
		return nil, errors.Wrap(ErrUnsupported, "2 components")
	}
	e.frame = frame
	e.staged = make([]byte, frame.FrameSize())
	return e.staged, nil
}

// Prepare wraps the staged frame in a Mat. Signed samples keep their bit pattern in
// an unsigned Mat, and RGB frames are reordered to OpenCV's BGR.
func (e *openCVEncoder) Prepare() error {
	e.closeMat()

	mt := matType(e.frame)
	e.pixels = e.staged
	if e.frame.ComponentCount == 3 {
		e.pixels = append([]byte(nil), e.staged...)
		swapRB(e.pixels, e.frame.BytesPerSample())
	}
	mat, err := gocv.NewMatFromBytes(int(e.frame.Height), int(e.frame.Width), mt, e.pixels)
	if err != nil {
		return errors.Wrap(err, "create mat from staged frame")
	}
	e.mat, e.hasMat = mat, true
	return nil
}

func (e *openCVEncoder) Encode() error {
	if !e.hasMat {
		return errors.New("no frame staged")
	}
	buf, err := gocv.IMEncodeWithParams(gocv.FileExt(".jp2"), e.mat, e.params)
	if err != nil {
		return err
	}
	if e.out != nil {
		e.out.Close()
	}
	e.out = buf
	return nil
}

func (e *openCVEncoder) EncodedBuffer() []byte {
	if e.out == nil {
		return nil
	}
	return e.out.GetBytes()
}

func (e *openCVEncoder) Release() error {
	e.closeMat()
	if e.out != nil {
		e.out.Close()
		e.out = nil
	}
	return nil
}

func (e *openCVEncoder) closeMat() {
	if e.hasMat {
		e.mat.Close()
		e.hasMat = false
	}
}

type openCVDecoder struct {
	staged []byte
	header *codestream.Header
	mat    gocv.Mat
	out    []byte
}

func (d *openCVDecoder) EncodedBuffer(size int) ([]byte, error) {
	d.staged = make([]byte, size)
	return d.staged, nil
}

// Prepare parses the main header so FrameInfo can report the signalled precision.
func (d *openCVDecoder) Prepare() error {
	h, err := codestream.ParseHeader(d.staged)
	if err != nil {
		return err
	}
	d.header = h
	return nil
}

func (d *openCVDecoder) Decode() error {
	if err := codestream.CheckComplete(d.staged); err != nil {
		return err
	}
	mat, err := gocv.IMDecode(d.staged, gocv.IMReadUnchanged)
	if err != nil {
		return err
	}
	if mat.Empty() {
		mat.Close()
		return errors.New("opencv could not decode the codestream")
	}
	d.mat.Close()
	d.mat = mat
	d.out = nil
	return nil
}

func (d *openCVDecoder) DecodedBuffer() []byte {
	if d.out == nil && !d.mat.Empty() {
		d.out = d.mat.ToBytes()
		if d.mat.Channels() == 3 {
			swapRB(d.out, sampleBytes(d.mat))
		}
	}
	return d.out
}

func (d *openCVDecoder) FrameInfo() benchmark.FrameInfo {
	if d.mat.Empty() {
		return benchmark.FrameInfo{}
	}
	bits := uint8(8 * sampleBytes(d.mat))
	if d.header != nil && d.header.BitsPerSample() <= bits {
		bits = d.header.BitsPerSample()
	}
	return benchmark.FrameInfo{
		Width:          uint32(d.mat.Cols()),
		Height:         uint32(d.mat.Rows()),
		BitsPerSample:  bits,
		ComponentCount: uint32(d.mat.Channels()),
		IsSigned:       int(d.mat.Type())&depthMask == depth16S,
	}
}

func (d *openCVDecoder) ImageOffset() image.Point {
	if d.header == nil {
		return image.Point{}
	}
	return d.header.ImageOffset
}

func (d *openCVDecoder) Header() *codestream.Header { return d.header }

func (d *openCVDecoder) Release() error {
	return d.mat.Close()
}

func matType(frame benchmark.FrameInfo) gocv.MatType {
	if frame.BytesPerSample() == 2 {
		if frame.ComponentCount == 3 {
			return gocv.MatTypeCV16UC3
		}
		return gocv.MatTypeCV16UC1
	}
	if frame.ComponentCount == 3 {
		return gocv.MatTypeCV8UC3
	}
	return gocv.MatTypeCV8UC1
}

func sampleBytes(m gocv.Mat) int {
	switch int(m.Type()) & depthMask {
	case depth8U, depth8S:
		return 1
	default:
		return 2
	}
}
