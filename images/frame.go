package images

import (
	"encoding/binary"
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Layout describes an interleaved raw frame: row-major, Components samples per
// pixel, one byte per sample up to 8 bits and two little-endian bytes above.
type Layout struct {
	Width         int
	Height        int
	BitsPerSample uint8
	Components    int
	Signed        bool
}

// ErrUnsupportedLayout is returned for layouts that have no image.Image equivalent.
var ErrUnsupportedLayout = errors.New("unsupported frame layout")

func (l Layout) bytesPerSample() int {
	return (int(l.BitsPerSample) + 7) / 8
}

// Size returns the number of bytes a frame with this layout occupies.
func (l Layout) Size() int {
	return l.Width * l.Height * l.Components * l.bytesPerSample()
}

// sample reads sample i and returns it as an unsigned value in 0..2^bits-1, with
// signed samples shifted up by 2^(bits-1).
func (l Layout) sample(data []byte, i int) uint32 {
	var v int32
	if l.bytesPerSample() == 1 {
		if l.Signed {
			v = int32(int8(data[i]))
		} else {
			v = int32(data[i])
		}
	} else {
		u := binary.LittleEndian.Uint16(data[2*i:])
		if l.Signed {
			v = int32(int16(u))
		} else {
			v = int32(u)
		}
	}
	if l.Signed {
		v += 1 << (l.BitsPerSample - 1)
	}
	max := int32(1)<<l.BitsPerSample - 1
	if v < 0 {
		v = 0
	} else if v > max {
		v = max
	}
	return uint32(v)
}

// ToImage converts a raw frame to an image. Single-component frames become
// image.Gray (8 bits or fewer) or image.Gray16; three-component frames become
// image.RGBA or image.RGBA64. Samples are scaled to the full range of the target.
//
// Arguments:
// - data: The raw frame.
// - l: The layout of data.
//
// Returns:
// - image.Image: The converted image.
// - error: Error if the layout is unsupported or data is too short.
func ToImage(data []byte, l Layout) (image.Image, error) {
	if l.Width <= 0 || l.Height <= 0 || l.BitsPerSample == 0 || l.BitsPerSample > 16 {
		return nil, errors.Wrapf(ErrUnsupportedLayout, "%dx%d %d-bit", l.Width, l.Height, l.BitsPerSample)
	}
	if len(data) < l.Size() {
		return nil, errors.Errorf("frame is %d bytes, layout needs %d", len(data), l.Size())
	}

	rect := image.Rect(0, 0, l.Width, l.Height)
	wide := l.BitsPerSample > 8
	shift := 8 - int(l.BitsPerSample)
	if wide {
		shift = 16 - int(l.BitsPerSample)
	}

	switch l.Components {
	case 1:
		if wide {
			img := image.NewGray16(rect)
			for i := 0; i < l.Width*l.Height; i++ {
				img.Set(i%l.Width, i/l.Width, color.Gray16{Y: uint16(l.sample(data, i) << shift)})
			}
			return img, nil
		}
		img := image.NewGray(rect)
		for i := range img.Pix {
			img.Pix[i] = uint8(l.sample(data, i) << shift)
		}
		return img, nil
	case 3:
		if wide {
			img := image.NewRGBA64(rect)
			for i := 0; i < l.Width*l.Height; i++ {
				img.SetRGBA64(i%l.Width, i/l.Width, color.RGBA64{
					R: uint16(l.sample(data, 3*i) << shift),
					G: uint16(l.sample(data, 3*i+1) << shift),
					B: uint16(l.sample(data, 3*i+2) << shift),
					A: 0xffff,
				})
			}
			return img, nil
		}
		img := image.NewRGBA(rect)
		for i := 0; i < l.Width*l.Height; i++ {
			img.Pix[4*i] = uint8(l.sample(data, 3*i) << shift)
			img.Pix[4*i+1] = uint8(l.sample(data, 3*i+1) << shift)
			img.Pix[4*i+2] = uint8(l.sample(data, 3*i+2) << shift)
			img.Pix[4*i+3] = 0xff
		}
		return img, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedLayout, "%d components", l.Components)
	}
}
