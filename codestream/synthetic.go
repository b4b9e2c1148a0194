package codestream

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// SyntheticParams describes a header-only codestream built by Synthesize.
type SyntheticParams struct {
	Width          uint32
	Height         uint32
	BitsPerSample  uint8
	ComponentCount uint16
	IsSigned       bool
	Decompositions uint8
	Layers         uint16
	Progression    ProgressionOrder
	Reversible     bool
	// Body is copied between SOD and EOC.
	Body []byte
}

// Synthesize builds a syntactically valid codestream with the given main header,
// a single tile-part carrying Body, and a trailing EOC. It is meant for tests and
// probes; the tile data is not decodable.
func Synthesize(p SyntheticParams) []byte {
	var buf bytes.Buffer
	put16 := func(v uint16) { _ = binary.Write(&buf, binary.BigEndian, v) }
	put32 := func(v uint32) { _ = binary.Write(&buf, binary.BigEndian, v) }

	put16(MarkerSOC)

	put16(MarkerSIZ)
	put16(38 + 3*p.ComponentCount)
	put16(0)
	put32(p.Width)
	put32(p.Height)
	put32(0)
	put32(0)
	put32(p.Width)
	put32(p.Height)
	put32(0)
	put32(0)
	put16(p.ComponentCount)
	ssiz := p.BitsPerSample - 1
	if p.IsSigned {
		ssiz |= 0x80
	}
	for i := uint16(0); i < p.ComponentCount; i++ {
		buf.WriteByte(ssiz)
		buf.WriteByte(1)
		buf.WriteByte(1)
	}

	put16(MarkerCOD)
	put16(12)
	buf.WriteByte(0)
	buf.WriteByte(byte(p.Progression))
	layers := p.Layers
	if layers == 0 {
		layers = 1
	}
	put16(layers)
	buf.WriteByte(0)
	buf.WriteByte(p.Decompositions)
	buf.WriteByte(4) // 64x64 code-blocks
	buf.WriteByte(4)
	buf.WriteByte(0)
	if p.Reversible {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	put16(MarkerSOT)
	put16(10)
	put16(0)
	put32(uint32(14 + len(p.Body)))
	buf.WriteByte(0)
	buf.WriteByte(1)
	put16(MarkerSOD)
	buf.Write(p.Body)

	put16(MarkerEOC)
	return buf.Bytes()
}

// WrapJP2 wraps a raw codestream in a minimal JP2 file (signature, ftyp, jp2c).
func WrapJP2(cs []byte) []byte {
	var buf bytes.Buffer
	buf.Write(jp2Signature)

	_ = binary.Write(&buf, binary.BigEndian, uint32(20))
	buf.WriteString("ftyp")
	buf.WriteString("jp2 ")
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))
	buf.WriteString("jp2 ")

	_ = binary.Write(&buf, binary.BigEndian, uint32(8+len(cs)))
	buf.WriteString("jp2c")
	buf.Write(cs)
	return buf.Bytes()
}

// SyntheticBody returns the Body of a codestream built by Synthesize, wrapped in
// JP2 or not.
func SyntheticBody(data []byte) ([]byte, error) {
	cs, err := Locate(data)
	if err != nil {
		return nil, err
	}
	h, err := ParseHeader(cs)
	if err != nil {
		return nil, err
	}
	sot := 2 + 2 + 38 + 3*len(h.Components) + 14
	if len(cs) < sot+12 || binary.BigEndian.Uint16(cs[sot:]) != MarkerSOT {
		return nil, errors.Wrap(ErrTruncated, "tile-part header")
	}
	psot := int(binary.BigEndian.Uint32(cs[sot+6:]))
	if psot < 14 || len(cs) < sot+psot+2 {
		return nil, errors.Wrapf(ErrTruncated, "tile-part of %d bytes", psot)
	}
	return cs[sot+14 : sot+psot], nil
}
