package testutil

import (
	"math"
	"testing"
)

func TestSine(t *testing.T) {
	s := Sine(1000, 48000, 0.5, 48)

	if len(s) != 48 {
		t.Fatalf("len = %d, want 48", len(s))
	}

	if s[0] != 0 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}

	if got := MaxAbs(s); got > 0.5 {
		t.Fatalf("MaxAbs = %v, want <= 0.5", got)
	}

	// One sample into a 1 kHz wave at 48 kHz is sin(2*pi/48).
	want := 0.5 * math.Sin(2*math.Pi/48)
	if math.Abs(s[1]-want) > 1e-12 {
		t.Fatalf("s[1] = %v, want %v", s[1], want)
	}
}

func TestNoiseIsDeterministic(t *testing.T) {
	a := Noise(42, 1.0, 256)
	b := Noise(42, 1.0, 256)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d: %v != %v for the same seed", i, a[i], b[i])
		}
	}

	if MaxAbs(a) > 1.0 {
		t.Fatalf("MaxAbs = %v, want <= 1", MaxAbs(a))
	}

	c := Noise(43, 1.0, 256)
	if RMSError(a, c) == 0 {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestRMSError(t *testing.T) {
	tests := []struct {
		name string
		got  []float64
		want []float64
		rms  float64
	}{
		{name: "identical", got: []float64{1, 2, 3}, want: []float64{1, 2, 3}, rms: 0},
		{name: "constant offset", got: []float64{1, 1}, want: []float64{0, 0}, rms: 1},
		{name: "empty", got: nil, want: nil, rms: 0},
		{name: "shorter length wins", got: []float64{1}, want: []float64{1, 99}, rms: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RMSError(tt.got, tt.want); math.Abs(got-tt.rms) > 1e-12 {
				t.Fatalf("RMSError = %v, want %v", got, tt.rms)
			}
		})
	}
}

func TestDominantBin(t *testing.T) {
	for _, bin := range []int{1, 8, 32, 100} {
		s := Sine(float64(bin)*48000/256, 48000, 1.0, 256)
		if got := DominantBin(s); got != bin {
			t.Fatalf("DominantBin = %d, want %d", got, bin)
		}
	}

	if got := DominantBin(make([]float64, 1)); got != 0 {
		t.Fatalf("DominantBin(short) = %d, want 0", got)
	}
}
