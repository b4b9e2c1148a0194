package engines

import (
	"bytes"
	"context"
	"image"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-j2kbench/benchmark"
	"github.com/nvr-ai/go-j2kbench/codestream"
)

// Default tool names looked up on PATH.
const (
	opjCompress   = "opj_compress"
	opjDecompress = "opj_decompress"
)

var opjVersion = regexp.MustCompile(`v?(\d+\.\d+\.\d+)`)

// OpenJPEG drives the opj_compress and opj_decompress reference tools. Each timed
// call is one tool invocation, so results include process start-up and file I/O.
//
// Frames are exchanged through little-endian planar ".rawl" files in a scratch
// directory owned by the instance.
type OpenJPEG struct {
	compress   string
	decompress string
	workDir    string
	threads    int
	version    string
	logger     *slog.Logger
}

// NewOpenJPEG resolves both tools and reads the library version from their usage text.
func NewOpenJPEG(ctx context.Context, cfg benchmark.BindingConfig, logger *slog.Logger) (*OpenJPEG, error) {
	compress, err := resolveTool(cfg.CompressPath, opjCompress)
	if err != nil {
		return nil, err
	}
	decompress, err := resolveTool(cfg.DecompressPath, opjDecompress)
	if err != nil {
		return nil, err
	}

	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create work directory")
	}

	// Both tools print usage and exit non-zero on -h; only the output matters.
	out, _ := exec.CommandContext(ctx, decompress, "-h").CombinedOutput()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	version := "unknown"
	if m := opjVersion.FindSubmatch(out); m != nil {
		version = string(m[1])
	}

	return &OpenJPEG{
		compress:   compress,
		decompress: decompress,
		workDir:    workDir,
		threads:    cfg.Threads,
		version:    "openjpeg " + version,
		logger:     logger,
	}, nil
}

func resolveTool(configured, name string) (string, error) {
	if configured == "" {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", errors.Wrapf(err, "%s not found", name)
		}
		return path, nil
	}
	info, err := os.Stat(configured)
	if err != nil {
		return "", errors.Wrapf(err, "%s", name)
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return "", errors.Errorf("%s: %s is not executable", name, configured)
	}
	return configured, nil
}

// Name implements benchmark.Binding.
func (o *OpenJPEG) Name() string { return NameOpenJPEG }

// Version implements benchmark.Versioner.
func (o *OpenJPEG) Version() string { return o.version }

// Close implements benchmark.Binding.
func (o *OpenJPEG) Close() error { return nil }

// CreateEncoder implements benchmark.Binding.
func (o *OpenJPEG) CreateEncoder(opts benchmark.EncodeOptions) (benchmark.Encoder, error) {
	dir, err := os.MkdirTemp(o.workDir, "j2kbench-enc-*")
	if err != nil {
		return nil, errors.Wrap(err, "create scratch directory")
	}
	return &openJPEGEncoder{tool: o.compress, dir: dir, opts: opts, threads: o.threads, logger: o.logger}, nil
}

// CreateDecoder implements benchmark.Binding.
func (o *OpenJPEG) CreateDecoder(opts benchmark.DecodeOptions) (benchmark.Decoder, error) {
	dir, err := os.MkdirTemp(o.workDir, "j2kbench-dec-*")
	if err != nil {
		return nil, errors.Wrap(err, "create scratch directory")
	}
	return &openJPEGDecoder{tool: o.decompress, dir: dir, opts: opts, threads: o.threads, logger: o.logger}, nil
}

// runTool runs one tool invocation and folds its output into the error.
func runTool(tool string, args []string) error {
	cmd := exec.Command(tool, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "%s: %s", filepath.Base(tool), lastLine(out.String()))
	}
	return nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

type openJPEGEncoder struct {
	tool    string
	dir     string
	opts    benchmark.EncodeOptions
	threads int
	logger  *slog.Logger

	frame  benchmark.FrameInfo
	staged []byte
	args   []string
	out    []byte
	stale  bool
}

func (e *openJPEGEncoder) input() string  { return filepath.Join(e.dir, "input.rawl") }
func (e *openJPEGEncoder) output() string { return filepath.Join(e.dir, "output.j2k") }

func (e *openJPEGEncoder) DecodedBuffer(frame benchmark.FrameInfo) ([]byte, error) {
	if err := checkFrame(frame, 16384); err != nil {
		return nil, err
	}
	e.frame = frame
	e.staged = make([]byte, frame.FrameSize())
	return e.staged, nil
}

// Prepare writes the staged frame as a planar file and fixes the tool arguments.
func (e *openJPEGEncoder) Prepare() error {
	planar := make([]byte, len(e.staged))
	toPlanar(planar, e.staged, int(e.frame.ComponentCount), e.frame.BytesPerSample())
	if err := os.WriteFile(e.input(), planar, 0o600); err != nil {
		return errors.Wrap(err, "write staged frame")
	}
	e.args = compressArgs(e.input(), e.output(), e.frame, e.opts, e.threads)
	e.logger.Debug("opj_compress arguments", "args", e.args)
	return nil
}

func (e *openJPEGEncoder) Encode() error {
	if e.args == nil {
		return errors.New("no frame staged")
	}
	if err := runTool(e.tool, e.args); err != nil {
		return err
	}
	e.stale = true
	return nil
}

func (e *openJPEGEncoder) EncodedBuffer() []byte {
	if e.stale {
		out, err := os.ReadFile(e.output())
		if err != nil {
			e.logger.Error("failed to read codestream", "path", e.output(), "error", err)
			return nil
		}
		e.out, e.stale = out, false
	}
	return e.out
}

func (e *openJPEGEncoder) Release() error {
	return os.RemoveAll(e.dir)
}

// compressArgs maps EncodeOptions onto opj_compress flags.
func compressArgs(in, out string, frame benchmark.FrameInfo, opts benchmark.EncodeOptions, threads int) []string {
	sign := "u"
	if frame.IsSigned {
		sign = "s"
	}
	args := []string{
		"-i", in,
		"-o", out,
		"-F", strings.Join([]string{
			strconv.FormatUint(uint64(frame.Width), 10),
			strconv.FormatUint(uint64(frame.Height), 10),
			strconv.FormatUint(uint64(frame.ComponentCount), 10),
			strconv.Itoa(int(frame.BitsPerSample)),
			sign,
		}, ","),
	}
	if opts.Decompositions > 0 {
		args = append(args, "-n", strconv.Itoa(opts.Decompositions+1))
	}
	if opts.ProgressionOrder != "" {
		args = append(args, "-p", strings.ToUpper(opts.ProgressionOrder))
	}
	if !opts.BlockDimensions.IsZero() {
		args = append(args, "-b", pair(opts.BlockDimensions.Width, opts.BlockDimensions.Height))
	}
	if !opts.TileSize.IsZero() {
		args = append(args, "-t", pair(opts.TileSize.Width, opts.TileSize.Height))
	}
	if opts.TileOffset != (image.Point{}) {
		args = append(args, "-T", pair(opts.TileOffset.X, opts.TileOffset.Y))
	}
	if opts.ImageOffset != (image.Point{}) {
		args = append(args, "-d", pair(opts.ImageOffset.X, opts.ImageOffset.Y))
	}
	if !opts.Lossless {
		args = append(args, "-I")
	}
	if opts.CompressionRatio > 0 {
		args = append(args, "-r", strconv.FormatFloat(opts.CompressionRatio, 'f', -1, 64))
	}
	if frame.ComponentCount >= 3 {
		mct := "0"
		if opts.ColorTransform {
			mct = "1"
		}
		args = append(args, "-mct", mct)
	}
	if threads > 0 {
		args = append(args, "-threads", strconv.Itoa(threads))
	}
	return args
}

func pair(a, b int) string {
	return strconv.Itoa(a) + "," + strconv.Itoa(b)
}

type openJPEGDecoder struct {
	tool    string
	dir     string
	opts    benchmark.DecodeOptions
	threads int
	logger  *slog.Logger

	staged []byte
	header *codestream.Header
	frame  benchmark.FrameInfo
	args   []string
	out    []byte
	stale  bool
}

func (d *openJPEGDecoder) output() string { return filepath.Join(d.dir, "output.rawl") }

func (d *openJPEGDecoder) EncodedBuffer(size int) ([]byte, error) {
	d.staged = make([]byte, size)
	return d.staged, nil
}

// Prepare parses the header and writes the staged stream with the extension
// opj_decompress uses to pick the container format.
func (d *openJPEGDecoder) Prepare() error {
	h, err := codestream.ParseHeader(d.staged)
	if err != nil {
		return err
	}
	if d.opts.DecompositionLevel > int(h.NumDecompositions) {
		return errors.Wrapf(ErrUnsupported, "reduce %d exceeds %d decompositions", d.opts.DecompositionLevel, h.NumDecompositions)
	}
	d.header = h
	d.frame = benchmark.FrameInfoFromHeader(h).AtDecompositionLevel(d.opts.DecompositionLevel)

	input := filepath.Join(d.dir, "input.j2k")
	if codestream.IsJP2(d.staged) {
		input = filepath.Join(d.dir, "input.jp2")
	}
	if err := os.WriteFile(input, d.staged, 0o600); err != nil {
		return errors.Wrap(err, "write staged codestream")
	}
	d.args = decompressArgs(input, d.output(), d.opts, d.threads)
	d.logger.Debug("opj_decompress arguments", "args", d.args)
	return nil
}

func (d *openJPEGDecoder) Decode() error {
	if d.args == nil {
		return errors.New("no codestream staged")
	}
	if err := codestream.CheckComplete(d.staged); err != nil {
		return err
	}
	if err := runTool(d.tool, d.args); err != nil {
		return err
	}
	d.stale = true
	return nil
}

func (d *openJPEGDecoder) DecodedBuffer() []byte {
	if d.stale {
		planar, err := os.ReadFile(d.output())
		if err != nil {
			d.logger.Error("failed to read decoded frame", "path", d.output(), "error", err)
			return nil
		}
		if want := d.frame.FrameSize(); len(planar) != want {
			d.logger.Error("decoded frame has unexpected size", "path", d.output(), "bytes", len(planar), "want", want)
			return nil
		}
		d.out = make([]byte, len(planar))
		toInterleaved(d.out, planar, int(d.frame.ComponentCount), d.frame.BytesPerSample())
		d.stale = false
	}
	return d.out
}

func (d *openJPEGDecoder) FrameInfo() benchmark.FrameInfo { return d.frame }

func (d *openJPEGDecoder) ImageOffset() image.Point {
	if d.header == nil {
		return image.Point{}
	}
	return d.header.ImageOffset
}

func (d *openJPEGDecoder) Header() *codestream.Header { return d.header }

func (d *openJPEGDecoder) Release() error {
	return os.RemoveAll(d.dir)
}

// decompressArgs maps DecodeOptions onto opj_decompress flags.
func decompressArgs(in, out string, opts benchmark.DecodeOptions, threads int) []string {
	args := []string{"-i", in, "-o", out}
	if opts.DecompositionLevel > 0 {
		args = append(args, "-r", strconv.Itoa(opts.DecompositionLevel))
	}
	if opts.DecodeLayer > 0 {
		args = append(args, "-l", strconv.Itoa(opts.DecodeLayer))
	}
	if threads > 0 {
		args = append(args, "-threads", strconv.Itoa(threads))
	}
	return args
}
