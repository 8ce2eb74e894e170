//go:build !fastmath

package robotic

import "math"

// softClip saturates x into (-1, 1) using standard library math.
func softClip(x float64) float64 {
	return math.Tanh(x)
}
