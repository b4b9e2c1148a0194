package engines

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-j2kbench/benchmark"
)

// toPlanar copies an interleaved frame into dst as one plane per component.
// Both slices hold samples of sampleBytes each.
func toPlanar(dst, src []byte, components, sampleBytes int) {
	if components == 1 {
		copy(dst, src)
		return
	}
	pixels := len(src) / (components * sampleBytes)
	plane := pixels * sampleBytes
	for p := 0; p < pixels; p++ {
		for c := 0; c < components; c++ {
			s := (p*components + c) * sampleBytes
			d := c*plane + p*sampleBytes
			copy(dst[d:d+sampleBytes], src[s:s+sampleBytes])
		}
	}
}

// toInterleaved is the inverse of toPlanar.
func toInterleaved(dst, src []byte, components, sampleBytes int) {
	if components == 1 {
		copy(dst, src)
		return
	}
	pixels := len(src) / (components * sampleBytes)
	plane := pixels * sampleBytes
	for p := 0; p < pixels; p++ {
		for c := 0; c < components; c++ {
			s := c*plane + p*sampleBytes
			d := (p*components + c) * sampleBytes
			copy(dst[d:d+sampleBytes], src[s:s+sampleBytes])
		}
	}
}

// swapRB exchanges the first and third sample of every 3-component pixel in place.
func swapRB(buf []byte, sampleBytes int) {
	stride := 3 * sampleBytes
	for i := 0; i+stride <= len(buf); i += stride {
		for b := 0; b < sampleBytes; b++ {
			buf[i+b], buf[i+2*sampleBytes+b] = buf[i+2*sampleBytes+b], buf[i+b]
		}
	}
}

// checkFrame rejects frames the adapters cannot stage.
func checkFrame(frame benchmark.FrameInfo, maxComponents uint32) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	if frame.ComponentCount > maxComponents {
		return errors.Wrapf(ErrUnsupported, "%d components", frame.ComponentCount)
	}
	return nil
}
