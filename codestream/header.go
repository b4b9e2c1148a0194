package codestream

import (
	"bytes"
	"encoding/binary"
	"image"

	"github.com/pkg/errors"
)

var (
	// ErrNotJPEG2000 is returned when data is neither a raw codestream nor a JP2 file.
	ErrNotJPEG2000 = errors.New("not a JPEG 2000 codestream or JP2 file")
	// ErrTruncated is returned when the codestream ends before its EOC marker.
	ErrTruncated = errors.New("codestream is truncated")
)

var jp2Signature = []byte{0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20, 0x0D, 0x0A, 0x87, 0x0A}

// Size is a width/height pair on the reference grid.
type Size struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Component holds the SIZ parameters of one image component.
type Component struct {
	BitsPerSample uint8 `json:"bitsPerSample"`
	IsSigned      bool  `json:"isSigned"`
	XRsiz         uint8 `json:"xrsiz"`
	YRsiz         uint8 `json:"yrsiz"`
}

// Header is the subset of the main header that describes the coded image.
type Header struct {
	Width                      uint32           `json:"width"`
	Height                     uint32           `json:"height"`
	ImageOffset                image.Point      `json:"imageOffset"`
	TileSize                   Size             `json:"tileSize"`
	TileOffset                 image.Point      `json:"tileOffset"`
	Components                 []Component      `json:"components"`
	ProgressionOrder           ProgressionOrder `json:"progressionOrder"`
	NumLayers                  uint16           `json:"numLayers"`
	NumDecompositions          uint8            `json:"numDecompositions"`
	Reversible                 bool             `json:"reversible"`
	BlockDimensions            Size             `json:"blockDimensions"`
	MultipleComponentTransform bool             `json:"multipleComponentTransform"`
}

// ComponentCount returns the number of components signalled in SIZ.
func (h *Header) ComponentCount() uint32 {
	return uint32(len(h.Components))
}

// BitsPerSample returns the precision of the first component.
func (h *Header) BitsPerSample() uint8 {
	if len(h.Components) == 0 {
		return 0
	}
	return h.Components[0].BitsPerSample
}

// IsSigned reports the signedness of the first component.
func (h *Header) IsSigned() bool {
	if len(h.Components) == 0 {
		return false
	}
	return h.Components[0].IsSigned
}

// IsCodestream reports whether data starts with SOC followed by SIZ.
func IsCodestream(data []byte) bool {
	return len(data) >= 4 &&
		binary.BigEndian.Uint16(data) == MarkerSOC &&
		binary.BigEndian.Uint16(data[2:]) == MarkerSIZ
}

// IsJP2 reports whether data starts with the JP2 signature box.
func IsJP2(data []byte) bool {
	return bytes.HasPrefix(data, jp2Signature)
}

// Locate returns the raw codestream contained in data. A raw codestream is returned
// as is; for a JP2 file the contents of the contiguous codestream box are returned.
func Locate(data []byte) ([]byte, error) {
	if IsCodestream(data) {
		return data, nil
	}
	if !IsJP2(data) {
		return nil, ErrNotJPEG2000
	}

	for off := 0; off < len(data); {
		if len(data)-off < 8 {
			return nil, ErrTruncated
		}
		length := uint64(binary.BigEndian.Uint32(data[off:]))
		boxType := string(data[off+4 : off+8])
		header := uint64(8)
		switch length {
		case 0:
			length = uint64(len(data) - off)
		case 1:
			if len(data)-off < 16 {
				return nil, ErrTruncated
			}
			length = binary.BigEndian.Uint64(data[off+8:])
			header = 16
		}
		if length < header {
			return nil, errors.Errorf("invalid %q box length %d", boxType, length)
		}
		if uint64(len(data)-off) < length {
			return nil, errors.Wrapf(ErrTruncated, "%q box needs %d bytes, %d available", boxType, length, len(data)-off)
		}
		if boxType == "jp2c" {
			return data[off+int(header) : off+int(length)], nil
		}
		off += int(length)
	}

	return nil, errors.New("JP2 file has no codestream box")
}

// CheckComplete verifies that the codestream in data is terminated by EOC.
func CheckComplete(data []byte) error {
	cs, err := Locate(data)
	if err != nil {
		return err
	}
	if len(cs) < 2 || binary.BigEndian.Uint16(cs[len(cs)-2:]) != MarkerEOC {
		return errors.Wrapf(ErrTruncated, "no EOC marker after %d bytes", len(cs))
	}
	return nil
}

// ParseHeader reads the main header of a codestream or JP2 file.
//
// Arguments:
//   - data: The encoded bytes, either a raw codestream or a JP2 file.
//
// Returns:
//   - *Header: The image geometry and default coding style.
//   - error: ErrNotJPEG2000, ErrTruncated, or a descriptive parse error.
func ParseHeader(data []byte) (*Header, error) {
	cs, err := Locate(data)
	if err != nil {
		return nil, err
	}

	r := &reader{data: cs}
	if marker, err := r.uint16(); err != nil || marker != MarkerSOC {
		return nil, ErrNotJPEG2000
	}

	h := &Header{}
	var haveSIZ, haveCOD bool
	for {
		marker, err := r.uint16()
		if err != nil {
			return nil, errors.Wrap(ErrTruncated, "main header")
		}
		if marker == MarkerSOT || marker == MarkerSOD || marker == MarkerEOC {
			break
		}
		length, err := r.uint16()
		if err != nil || length < 2 {
			return nil, errors.Wrapf(ErrTruncated, "%s segment length", MarkerName(marker))
		}
		segment, err := r.bytes(int(length) - 2)
		if err != nil {
			return nil, errors.Wrapf(ErrTruncated, "%s segment", MarkerName(marker))
		}

		switch marker {
		case MarkerSIZ:
			if err := h.parseSIZ(segment); err != nil {
				return nil, err
			}
			haveSIZ = true
		case MarkerCOD:
			if err := h.parseCOD(segment); err != nil {
				return nil, err
			}
			haveCOD = true
		}
	}

	if !haveSIZ {
		return nil, errors.New("main header has no SIZ segment")
	}
	if !haveCOD {
		return nil, errors.New("main header has no COD segment")
	}
	return h, nil
}

func (h *Header) parseSIZ(seg []byte) error {
	if len(seg) < 36 {
		return errors.Errorf("SIZ segment too short: %d bytes", len(seg))
	}
	xsiz := binary.BigEndian.Uint32(seg[2:])
	ysiz := binary.BigEndian.Uint32(seg[6:])
	xosiz := binary.BigEndian.Uint32(seg[10:])
	yosiz := binary.BigEndian.Uint32(seg[14:])
	if xosiz >= xsiz || yosiz >= ysiz {
		return errors.Errorf("SIZ image offset (%d,%d) outside grid %dx%d", xosiz, yosiz, xsiz, ysiz)
	}

	h.Width = xsiz - xosiz
	h.Height = ysiz - yosiz
	h.ImageOffset = image.Pt(int(xosiz), int(yosiz))
	h.TileSize = Size{Width: binary.BigEndian.Uint32(seg[18:]), Height: binary.BigEndian.Uint32(seg[22:])}
	h.TileOffset = image.Pt(int(binary.BigEndian.Uint32(seg[26:])), int(binary.BigEndian.Uint32(seg[30:])))

	csiz := int(binary.BigEndian.Uint16(seg[34:]))
	if csiz == 0 {
		return errors.New("SIZ signals zero components")
	}
	if len(seg) != 36+3*csiz {
		return errors.Errorf("SIZ segment length mismatch: expected %d, got %d", 36+3*csiz, len(seg))
	}
	h.Components = make([]Component, csiz)
	for i := range h.Components {
		ssiz := seg[36+3*i]
		h.Components[i] = Component{
			BitsPerSample: ssiz&0x7F + 1,
			IsSigned:      ssiz&0x80 != 0,
			XRsiz:         seg[37+3*i],
			YRsiz:         seg[38+3*i],
		}
	}
	return nil
}

func (h *Header) parseCOD(seg []byte) error {
	if len(seg) < 10 {
		return errors.Errorf("COD segment too short: %d bytes", len(seg))
	}
	h.ProgressionOrder = ProgressionOrder(seg[1])
	h.NumLayers = binary.BigEndian.Uint16(seg[2:])
	h.MultipleComponentTransform = seg[4] != 0
	h.NumDecompositions = seg[5]
	h.BlockDimensions = Size{Width: 1 << (seg[6] + 2), Height: 1 << (seg[7] + 2)}
	h.Reversible = seg[9] == 1
	return nil
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n < 0 || len(r.data)-r.off < n {
		return nil, ErrTruncated
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}
