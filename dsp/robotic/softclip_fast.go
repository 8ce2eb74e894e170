//go:build fastmath

package robotic

import (
	"github.com/meko-christian/algo-approx"
)

// softClip saturates x into (-1, 1) using fast approximation.
// Uses the identity: tanh(x) = (e^(2x) - 1) / (e^(2x) + 1)
func softClip(x float64) float64 {
	// FastExp loses accuracy far from zero; tanh is within 1e-9 of its
	// asymptote beyond |x| = 12, so short-circuit there.
	if x > 12 {
		return 1
	}

	if x < -12 {
		return -1
	}

	e := approx.FastExp(2 * x)

	return (e - 1) / (e + 1)
}
