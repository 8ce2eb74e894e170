package audioio

import (
	"encoding/binary"
	"math"
)

// decodeMonoF32 reads little-endian float32 frames and writes the first
// channel of each frame into dst. Missing source data decodes as silence.
func decodeMonoF32(dst []float64, src []byte, channels int) {
	if channels < 1 {
		channels = 1
	}

	stride := 4 * channels

	for i := range dst {
		off := i * stride
		if off+4 > len(src) {
			dst[i] = 0
			continue
		}

		bits := binary.LittleEndian.Uint32(src[off : off+4])
		dst[i] = float64(math.Float32frombits(bits))
	}
}

// encodeF32 writes samples as little-endian float32 into dst, which must
// hold 4*len(src) bytes. Excess destination bytes are left untouched.
func encodeF32(dst []byte, src []float64) {
	for i, v := range src {
		off := i * 4
		if off+4 > len(dst) {
			return
		}

		binary.LittleEndian.PutUint32(dst[off:off+4], math.Float32bits(float32(v)))
	}
}
