package images

import (
	"image"
	"image/png"
	"os"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Stretch maps the occupied range of a 16-bit grayscale image onto 8 bits. Medical
// frames rarely use the full 16-bit range, so a direct conversion is nearly black.
func Stretch(img *image.Gray16) *image.Gray {
	b := img.Bounds()
	lo, hi := uint16(0xffff), uint16(0)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := img.Gray16At(x, y).Y
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}

	out := image.NewGray(b)
	span := uint32(hi) - uint32(lo)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v uint8
			if span > 0 {
				v = uint8((uint32(img.Gray16At(x, y).Y-lo) * 255) / span)
			}
			out.Pix[out.PixOffset(x, y)] = v
		}
	}
	return out
}

// Preview returns a thumbnail of img that fits in maxDimension x maxDimension,
// preserving aspect ratio. Images already small enough are returned unscaled.
//
// Arguments:
// - img: The source image.
// - maxDimension: The largest allowed width or height.
//
// Returns:
// - image.Image: The thumbnail.
func Preview(img image.Image, maxDimension uint) image.Image {
	if g, ok := img.(*image.Gray16); ok {
		img = Stretch(g)
	}
	return resize.Thumbnail(maxDimension, maxDimension, img, resize.Lanczos3)
}

// WritePNG encodes img as PNG at path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create preview")
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encode preview %s", path)
	}
	return errors.Wrap(f.Close(), "close preview")
}
