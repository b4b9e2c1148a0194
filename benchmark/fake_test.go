package benchmark

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-j2kbench/codestream"
)

// fakeBinding is a lossless in-memory codec: encoding wraps the staged frame in a
// synthetic codestream and decoding unwraps it again.
type fakeBinding struct {
	created  int
	released int
	// encodeErrAt and decodeErrAt fail the Nth call of every instance (zero-based);
	// -1 disables.
	encodeErrAt int
	decodeErrAt int
	// frameOverride replaces the decoded FrameInfo when set.
	frameOverride *FrameInfo
	// jp2 wraps encoder output in a JP2 container.
	jp2 bool
}

func newFakeBinding() *fakeBinding {
	return &fakeBinding{encodeErrAt: -1, decodeErrAt: -1}
}

func (b *fakeBinding) Name() string { return "fake" }

func (b *fakeBinding) Close() error { return nil }

func (b *fakeBinding) CreateEncoder(EncodeOptions) (Encoder, error) {
	b.created++
	return &fakeEncoder{b: b}, nil
}

func (b *fakeBinding) CreateDecoder(DecodeOptions) (Decoder, error) {
	b.created++
	return &fakeDecoder{b: b}, nil
}

type fakeEncoder struct {
	b      *fakeBinding
	frame  FrameInfo
	staged []byte
	out    []byte
	calls  int
}

func (e *fakeEncoder) DecodedBuffer(frame FrameInfo) ([]byte, error) {
	e.frame = frame
	e.staged = make([]byte, frame.FrameSize())
	return e.staged, nil
}

func (e *fakeEncoder) Encode() error {
	defer func() { e.calls++ }()
	if e.calls == e.b.encodeErrAt {
		return errors.New("encoder rejected frame")
	}
	e.out = codestream.Synthesize(codestream.SyntheticParams{
		Width:          e.frame.Width,
		Height:         e.frame.Height,
		BitsPerSample:  e.frame.BitsPerSample,
		ComponentCount: uint16(e.frame.ComponentCount),
		IsSigned:       e.frame.IsSigned,
		Decompositions: 5,
		Reversible:     true,
		Body:           e.staged,
	})
	if e.b.jp2 {
		e.out = codestream.WrapJP2(e.out)
	}
	return nil
}

func (e *fakeEncoder) EncodedBuffer() []byte { return e.out }

func (e *fakeEncoder) Release() error {
	e.b.released++
	return nil
}

type fakeDecoder struct {
	b      *fakeBinding
	staged []byte
	out    []byte
	frame  FrameInfo
	header *codestream.Header
	calls  int
}

func (d *fakeDecoder) EncodedBuffer(size int) ([]byte, error) {
	d.staged = make([]byte, size)
	return d.staged, nil
}

func (d *fakeDecoder) Decode() error {
	defer func() { d.calls++ }()
	if d.calls == d.b.decodeErrAt {
		return errors.New("decoder rejected codestream")
	}
	h, err := codestream.ParseHeader(d.staged)
	if err != nil {
		return err
	}
	body, err := codestream.SyntheticBody(d.staged)
	if err != nil {
		return err
	}
	d.header = h
	d.frame = FrameInfoFromHeader(h)
	if d.b.frameOverride != nil {
		d.frame = *d.b.frameOverride
	}
	d.out = body
	return nil
}

func (d *fakeDecoder) DecodedBuffer() []byte { return d.out }

func (d *fakeDecoder) FrameInfo() FrameInfo { return d.frame }

func (d *fakeDecoder) ImageOffset() image.Point { return image.Point{} }

func (d *fakeDecoder) Header() *codestream.Header { return d.header }

func (d *fakeDecoder) Release() error {
	d.b.released++
	return nil
}

// mockBinding is a testify double used to count lifecycle calls.
type mockBinding struct {
	mock.Mock
}

func (m *mockBinding) Name() string { return "mock" }

func (m *mockBinding) Close() error { return m.Called().Error(0) }

func (m *mockBinding) CreateEncoder(opts EncodeOptions) (Encoder, error) {
	args := m.Called(opts)
	enc, _ := args.Get(0).(Encoder)
	return enc, args.Error(1)
}

func (m *mockBinding) CreateDecoder(opts DecodeOptions) (Decoder, error) {
	args := m.Called(opts)
	dec, _ := args.Get(0).(Decoder)
	return dec, args.Error(1)
}

type mockEncoder struct {
	mock.Mock
}

func (m *mockEncoder) DecodedBuffer(frame FrameInfo) ([]byte, error) {
	args := m.Called(frame)
	buf, _ := args.Get(0).([]byte)
	return buf, args.Error(1)
}

func (m *mockEncoder) Encode() error { return m.Called().Error(0) }

func (m *mockEncoder) EncodedBuffer() []byte {
	buf, _ := m.Called().Get(0).([]byte)
	return buf
}

func (m *mockEncoder) Release() error { return m.Called().Error(0) }

type mockDecoder struct {
	mock.Mock
}

func (m *mockDecoder) EncodedBuffer(size int) ([]byte, error) {
	args := m.Called(size)
	buf, _ := args.Get(0).([]byte)
	return buf, args.Error(1)
}

func (m *mockDecoder) Decode() error { return m.Called().Error(0) }

func (m *mockDecoder) DecodedBuffer() []byte {
	buf, _ := m.Called().Get(0).([]byte)
	return buf
}

func (m *mockDecoder) FrameInfo() FrameInfo { return m.Called().Get(0).(FrameInfo) }

func (m *mockDecoder) ImageOffset() image.Point { return image.Point{} }

func (m *mockDecoder) Release() error { return m.Called().Error(0) }

// testFrame fills a frame with a deterministic pattern.
func testFrame(frame FrameInfo) []byte {
	raw := make([]byte, frame.FrameSize())
	for i := range raw {
		raw[i] = byte(i*7 + i/13)
	}
	return raw
}

// writeCorpus writes <N>.RAW and a matching <N>.j2k for every fixture.
func writeCorpus(t *testing.T, fixtures []FixtureDescriptor) *DirStore {
	t.Helper()
	store := NewDirStore(filepath.Join(t.TempDir(), "raw"), filepath.Join(t.TempDir(), "j2k"))
	require.NoError(t, os.MkdirAll(store.RawDir, 0o755))
	require.NoError(t, os.MkdirAll(store.CodestreamDir, 0o755))

	for _, f := range fixtures {
		raw := testFrame(f.FrameInfo)
		require.NoError(t, os.WriteFile(store.RawPath(f.Name), raw, 0o644))
		cs := codestream.Synthesize(codestream.SyntheticParams{
			Width:          f.Width,
			Height:         f.Height,
			BitsPerSample:  f.BitsPerSample,
			ComponentCount: uint16(f.ComponentCount),
			IsSigned:       f.IsSigned,
			Body:           raw,
		})
		require.NoError(t, os.WriteFile(store.CodestreamPath(f.Name), cs, 0o644))
	}
	return store
}

func smallCorpus() []FixtureDescriptor {
	return []FixtureDescriptor{
		NewFixtureBuilder("CT1").WithDimensions(32, 32).WithBitsPerSample(16).Signed(true).Build(),
		NewFixtureBuilder("US1").WithDimensions(20, 10).WithComponents(3).Build(),
		NewFixtureBuilder("XA1").WithDimensions(16, 24).WithBitsPerSample(16).Build(),
	}
}
