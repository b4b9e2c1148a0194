package codestream

import (
	"image"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ct1Params() SyntheticParams {
	return SyntheticParams{
		Width:          512,
		Height:         512,
		BitsPerSample:  16,
		ComponentCount: 1,
		IsSigned:       true,
		Decompositions: 5,
		Layers:         1,
		Progression:    RPCL,
		Reversible:     true,
		Body:           make([]byte, 1024),
	}
}

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader(Synthesize(ct1Params()))
	require.NoError(t, err)

	assert.Equal(t, uint32(512), h.Width)
	assert.Equal(t, uint32(512), h.Height)
	assert.Equal(t, uint32(1), h.ComponentCount())
	assert.Equal(t, uint8(16), h.BitsPerSample())
	assert.True(t, h.IsSigned())
	assert.Equal(t, image.Point{}, h.ImageOffset)
	assert.Equal(t, Size{Width: 512, Height: 512}, h.TileSize)
	assert.Equal(t, RPCL, h.ProgressionOrder)
	assert.Equal(t, uint16(1), h.NumLayers)
	assert.Equal(t, uint8(5), h.NumDecompositions)
	assert.True(t, h.Reversible)
	assert.Equal(t, Size{Width: 64, Height: 64}, h.BlockDimensions)
}

func TestParseHeaderRGB(t *testing.T) {
	p := SyntheticParams{Width: 640, Height: 480, BitsPerSample: 8, ComponentCount: 3}
	h, err := ParseHeader(Synthesize(p))
	require.NoError(t, err)

	assert.Equal(t, uint32(3), h.ComponentCount())
	assert.Equal(t, uint8(8), h.BitsPerSample())
	assert.False(t, h.IsSigned())
	assert.False(t, h.Reversible)
	assert.Equal(t, LRCP, h.ProgressionOrder)
}

func TestParseHeaderJP2(t *testing.T) {
	jp2 := WrapJP2(Synthesize(ct1Params()))
	assert.True(t, IsJP2(jp2))
	assert.False(t, IsCodestream(jp2))

	h, err := ParseHeader(jp2)
	require.NoError(t, err)
	assert.Equal(t, uint32(512), h.Width)
	assert.NoError(t, CheckComplete(jp2))
}

func TestParseHeaderRejectsGarbage(t *testing.T) {
	_, err := ParseHeader([]byte("definitely not a codestream"))
	assert.True(t, errors.Is(err, ErrNotJPEG2000))

	_, err = ParseHeader(nil)
	assert.True(t, errors.Is(err, ErrNotJPEG2000))
}

func TestParseHeaderTruncatedMainHeader(t *testing.T) {
	cs := Synthesize(ct1Params())
	_, err := ParseHeader(cs[:20])
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestCheckComplete(t *testing.T) {
	cs := Synthesize(ct1Params())
	require.NoError(t, CheckComplete(cs))

	err := CheckComplete(cs[:len(cs)-500])
	assert.True(t, errors.Is(err, ErrTruncated))

	jp2 := WrapJP2(cs)
	err = CheckComplete(jp2[:len(jp2)-500])
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestProgressionOrderRoundTrip(t *testing.T) {
	for p := LRCP; p <= CPRL; p++ {
		got, ok := ParseProgressionOrder(p.String())
		assert.True(t, ok)
		assert.Equal(t, p, got)
	}
	got, ok := ParseProgressionOrder("rpcl")
	assert.True(t, ok)
	assert.Equal(t, RPCL, got)

	_, ok = ParseProgressionOrder("XYZW")
	assert.False(t, ok)
	_, ok = ParseProgressionOrder("unknown")
	assert.False(t, ok)
	assert.Equal(t, "UNKNOWN", ProgressionOrder(9).String())
}

func TestMarkerName(t *testing.T) {
	assert.Equal(t, "SIZ", MarkerName(MarkerSIZ))
	assert.Equal(t, "EOC", MarkerName(MarkerEOC))
	assert.Equal(t, "UNKNOWN", MarkerName(0xFF00))
}

func TestSyntheticBody(t *testing.T) {
	p := ct1Params()
	p.Body = []byte{1, 2, 3, 4, 0xFF, 0x93}
	cs := Synthesize(p)

	body, err := SyntheticBody(cs)
	require.NoError(t, err)
	assert.Equal(t, p.Body, body)

	body, err = SyntheticBody(WrapJP2(cs))
	require.NoError(t, err)
	assert.Equal(t, p.Body, body)

	_, err = SyntheticBody(cs[:len(cs)-4])
	assert.True(t, errors.Is(err, ErrTruncated))
}
