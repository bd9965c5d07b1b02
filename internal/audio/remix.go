package audio

import (
	"encoding/binary"
	"math"
)

// appendRemixed appends the interleaved frames in src, recorded with inCh
// channels, to dst laid out with outCh channels. Mono is duplicated across
// every output channel, a mono output averages all inputs, and any other
// mismatch keeps the leading channels, padding with silence.
func appendRemixed(dst, src []float32, inCh, outCh int) []float32 {
	if inCh <= 0 || outCh <= 0 {
		return dst
	}
	frames := len(src) / inCh
	if inCh == outCh {
		return append(dst, src[:frames*inCh]...)
	}

	for f := 0; f < frames; f++ {
		frame := src[f*inCh : (f+1)*inCh]
		switch {
		case inCh == 1:
			for c := 0; c < outCh; c++ {
				dst = append(dst, frame[0])
			}
		case outCh == 1:
			var sum float32
			for _, v := range frame {
				sum += v
			}
			dst = append(dst, sum/float32(inCh))
		default:
			for c := 0; c < outCh; c++ {
				if c < inCh {
					dst = append(dst, frame[c])
				} else {
					dst = append(dst, 0)
				}
			}
		}
	}
	return dst
}

// float32FromLE decodes little-endian float32 samples from raw bytes into dst
// and returns the number of samples written.
func float32FromLE(dst []float32, raw []byte) int {
	n := min(len(dst), len(raw)/4)
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return n
}
