// Package testutil provides deterministic signal generators and tolerance
// helpers shared by DSP package tests.
package testutil

import (
	"math"
	"math/rand"
	"testing"
)

// Sine generates a deterministic sine wave.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// Noise generates white noise with a fixed seed for reproducibility.
func Noise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// RMSError returns the root-mean-square difference between two slices,
// compared over the shorter length.
func RMSError(got, want []float64) float64 {
	n := min(len(got), len(want))
	if n == 0 {
		return 0
	}

	sum := 0.0
	for i := range n {
		d := got[i] - want[i]
		sum += d * d
	}

	return math.Sqrt(sum / float64(n))
}

// MaxAbs returns the maximum absolute value in data.
func MaxAbs(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// DominantBin returns the index of the strongest DFT bin in [1, N/2] of the
// given block, using a direct DFT. Bin 0 (DC) is excluded.
func DominantBin(block []float64) int {
	n := len(block)
	if n < 2 {
		return 0
	}

	best := 1
	bestPower := 0.0

	for k := 1; k <= n/2; k++ {
		re := 0.0
		im := 0.0

		for i, x := range block {
			angle := 2 * math.Pi * float64(k) * float64(i) / float64(n)
			re += x * math.Cos(angle)
			im -= x * math.Sin(angle)
		}

		power := re*re + im*im
		if power > bestPower {
			bestPower = power
			best = k
		}
	}

	return best
}
