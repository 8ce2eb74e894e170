package audioio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func f32leBytes(samples ...float32) []byte {
	buf := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}

	return buf
}

func TestDecodeMonoF32(t *testing.T) {
	src := f32leBytes(0.5, -0.25, 1.0)
	dst := make([]float64, 3)

	decodeMonoF32(dst, src, 1)

	assert.InDelta(t, 0.5, dst[0], 1e-7)
	assert.InDelta(t, -0.25, dst[1], 1e-7)
	assert.InDelta(t, 1.0, dst[2], 1e-7)
}

func TestDecodeMonoF32TakesFirstChannelOfInterleavedFrames(t *testing.T) {
	// Two stereo frames: only the left samples survive.
	src := f32leBytes(0.1, 0.9, -0.2, 0.8)
	dst := make([]float64, 2)

	decodeMonoF32(dst, src, 2)

	assert.InDelta(t, 0.1, dst[0], 1e-7)
	assert.InDelta(t, -0.2, dst[1], 1e-7)
}

func TestDecodeMonoF32ShortSourceDecodesSilence(t *testing.T) {
	src := f32leBytes(0.5)
	dst := []float64{9, 9, 9}

	decodeMonoF32(dst, src, 1)

	assert.InDelta(t, 0.5, dst[0], 1e-7)
	assert.Zero(t, dst[1])
	assert.Zero(t, dst[2])
}

func TestEncodeF32RoundTrip(t *testing.T) {
	src := []float64{0.5, -0.95, 0, 0.125}
	dst := make([]byte, 4*len(src))

	encodeF32(dst, src)

	back := make([]float64, len(src))
	decodeMonoF32(back, dst, 1)

	for i := range src {
		assert.InDelta(t, src[i], back[i], 1e-7, "sample %d", i)
	}
}

func TestEncodeF32StopsAtShortDestination(t *testing.T) {
	src := []float64{0.5, 0.5, 0.5}
	dst := make([]byte, 4)

	encodeF32(dst, src)

	bits := binary.LittleEndian.Uint32(dst)
	assert.InDelta(t, 0.5, float64(math.Float32frombits(bits)), 1e-7)
}

func TestMatchesDevice(t *testing.T) {
	tests := []struct {
		name      string
		decodedID string
		devName   string
		selector  string
		want      bool
	}{
		{name: "exact id", decodedID: "hw:1,0", devName: "USB Audio", selector: "hw:1,0", want: true},
		{name: "name substring", decodedID: "hw:1,0", devName: "USB Audio Device", selector: "USB", want: true},
		{name: "no match", decodedID: "hw:1,0", devName: "USB Audio", selector: "Built-in", want: false},
		{name: "id substring does not match", decodedID: "hw:1,0", devName: "USB Audio", selector: "hw:1", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesDevice(tt.decodedID, tt.devName, tt.selector))
		})
	}
}

func TestHexToASCII(t *testing.T) {
	got, err := hexToASCII("68773a312c30")
	assert.NoError(t, err)
	assert.Equal(t, "hw:1,0", got)

	got, err = hexToASCII("6162630000")
	assert.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = hexToASCII("zz")
	assert.Error(t, err)
}
