package engine

import (
	"fmt"
	"math"
)

const (
	// DefaultBlockSize targets interactive latency (~5.3 ms per block at
	// 48 kHz). HighQualityBlockSize trades latency for finer spectral
	// resolution.
	DefaultBlockSize     = 256
	HighQualityBlockSize = 1024

	defaultSampleRate       = 48000
	defaultOutputGain       = 2.2
	defaultNormalizeTarget  = 0.95
	defaultRoboticIntensity = 0.7
	defaultCarrierHz        = 95.0
	defaultBitDepth         = 10
)

// Config holds the immutable engine parameters. It is fixed for the lifetime
// of one engine instance; changing parameters requires a new engine.
type Config struct {
	SampleRate int
	BlockSize  int

	OutputGain      float64
	NormalizeTarget float64

	RoboticIntensity float64
	CarrierHz        float64
	BitDepth         int
}

// DefaultConfig returns the standard low-latency configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:       defaultSampleRate,
		BlockSize:        DefaultBlockSize,
		OutputGain:       defaultOutputGain,
		NormalizeTarget:  defaultNormalizeTarget,
		RoboticIntensity: defaultRoboticIntensity,
		CarrierHz:        defaultCarrierHz,
		BitDepth:         defaultBitDepth,
	}
}

// Validate reports the first invalid configuration value.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("engine sample rate must be > 0: %d", c.SampleRate)
	}

	if c.BlockSize <= 0 {
		return fmt.Errorf("engine block size must be > 0: %d", c.BlockSize)
	}

	if c.OutputGain <= 0 || math.IsNaN(c.OutputGain) || math.IsInf(c.OutputGain, 0) {
		return fmt.Errorf("engine output gain must be > 0 and finite: %f", c.OutputGain)
	}

	if c.NormalizeTarget <= 0 || c.NormalizeTarget > 1 {
		return fmt.Errorf("engine normalize target must be in (0, 1]: %f", c.NormalizeTarget)
	}

	if c.RoboticIntensity < 0 || c.RoboticIntensity > 1 {
		return fmt.Errorf("engine robotic intensity must be in [0, 1]: %f", c.RoboticIntensity)
	}

	if c.CarrierHz <= 0 || math.IsNaN(c.CarrierHz) || math.IsInf(c.CarrierHz, 0) {
		return fmt.Errorf("engine carrier frequency must be > 0 and finite: %f", c.CarrierHz)
	}

	if c.BitDepth < 1 || c.BitDepth > 32 {
		return fmt.Errorf("engine bit depth must be in [1, 32]: %d", c.BitDepth)
	}

	return nil
}

// BlockPeriod returns the wall-clock duration of one block in seconds, which
// is the hard deadline for a callback invocation.
func (c Config) BlockPeriod() float64 {
	return float64(c.BlockSize) / float64(c.SampleRate)
}
