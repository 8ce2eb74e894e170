// Package chain composes the voice transformation pipeline applied to every
// audio block: pitch shift, optional robotic effect, output gain, and peak
// normalization, in that fixed order.
package chain

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-voicemod/dsp/carrier"
	"github.com/cwbudde/algo-voicemod/dsp/pitch"
	"github.com/cwbudde/algo-voicemod/dsp/robotic"
)

// ErrNonFiniteBlock reports that a processed block contained NaN or Inf
// values and was replaced with silence.
var ErrNonFiniteBlock = errors.New("non-finite block silenced")

const (
	defaultChainBlockSize  = 256
	defaultOutputGain      = 2.2
	defaultNormalizeTarget = 0.95
	maxOutputGain          = 64.0

	// semitoneLimit bounds spectral redistribution cost and artifact
	// severity; the control layer clamps to the same range.
	semitoneLimit = 24.0

	// pitchBypassThreshold skips the transform pair entirely for offsets
	// too small to hear, saving the bulk of the per-block budget.
	pitchBypassThreshold = 0.1
)

// Option mutates chain construction parameters.
type Option func(*config) error

type config struct {
	blockSize       int
	outputGain      float64
	normalizeTarget float64
	carrierOpts     []carrier.Option
	roboticOpts     []robotic.Option
}

func defaultChainConfig() config {
	return config{
		blockSize:       defaultChainBlockSize,
		outputGain:      defaultOutputGain,
		normalizeTarget: defaultNormalizeTarget,
	}
}

// WithBlockSize sets the processing block size in samples. The pitch
// shifter additionally requires a power of two >= 32.
func WithBlockSize(size int) Option {
	return func(cfg *config) error {
		if size <= 0 {
			return fmt.Errorf("chain block size must be > 0: %d", size)
		}

		cfg.blockSize = size

		return nil
	}
}

// WithOutputGain sets the fixed output gain applied before normalization.
func WithOutputGain(gain float64) Option {
	return func(cfg *config) error {
		if gain <= 0 || gain > maxOutputGain || math.IsNaN(gain) || math.IsInf(gain, 0) {
			return fmt.Errorf("chain output gain must be in (0, %g]: %f", maxOutputGain, gain)
		}

		cfg.outputGain = gain

		return nil
	}
}

// WithNormalizeTarget sets the peak ceiling the output is scaled down to
// when a block exceeds it. target must be in (0, 1].
func WithNormalizeTarget(target float64) Option {
	return func(cfg *config) error {
		if target <= 0 || target > 1 || math.IsNaN(target) || math.IsInf(target, 0) {
			return fmt.Errorf("chain normalize target must be in (0, 1]: %f", target)
		}

		cfg.normalizeTarget = target

		return nil
	}
}

// WithCarrierOptions forwards options to the robotic carrier table.
func WithCarrierOptions(opts ...carrier.Option) Option {
	return func(cfg *config) error {
		cfg.carrierOpts = append(cfg.carrierOpts, opts...)
		return nil
	}
}

// WithRoboticOptions forwards options to the robotic effect.
func WithRoboticOptions(opts ...robotic.Option) Option {
	return func(cfg *config) error {
		cfg.roboticOpts = append(cfg.roboticOpts, opts...)
		return nil
	}
}

// Params carries the per-block control values sampled by the audio thread.
type Params struct {
	Semitones float64
	Robotic   bool
}

// Chain applies the fixed per-block transform: pitch shift, optional robotic
// effect, output gain, peak normalization. Normalization runs last so the
// gain and robotic distortion are included in the peak measurement.
//
// All working buffers are sized at construction; Process performs no
// allocation. A Chain is not safe for concurrent use.
type Chain struct {
	blockSize       int
	outputGain      float64
	normalizeTarget float64

	shifter *pitch.Shifter
	robot   *robotic.Effect

	work []float64
}

// New creates a chain for the given sample rate and optional configuration
// overrides.
func New(sampleRate float64, opts ...Option) (*Chain, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("chain sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultChainConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	shifter, err := pitch.New(sampleRate, pitch.WithBlockSize(cfg.blockSize))
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}

	table, err := carrier.New(sampleRate, cfg.carrierOpts...)
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}

	robot, err := robotic.New(table, cfg.roboticOpts...)
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}

	return &Chain{
		blockSize:       cfg.blockSize,
		outputGain:      cfg.outputGain,
		normalizeTarget: cfg.normalizeTarget,
		shifter:         shifter,
		robot:           robot,
		work:            make([]float64, cfg.blockSize),
	}, nil
}

// BlockSize returns the fixed block size in samples.
func (c *Chain) BlockSize() int { return c.blockSize }

// OutputGain returns the fixed output gain.
func (c *Chain) OutputGain() float64 { return c.outputGain }

// NormalizeTarget returns the peak normalization ceiling.
func (c *Chain) NormalizeTarget() float64 { return c.normalizeTarget }

// Robotic returns the robotic effect for parameter adjustment outside the
// audio thread.
func (c *Chain) Robotic() *robotic.Effect { return c.robot }

// Reset clears the carrier cursor and any other streaming state.
func (c *Chain) Reset() {
	c.robot.Reset()
}

// Process transforms src into dst using the given control parameters.
//
// dst and src must both have exactly BlockSize samples. If the processed
// block comes out non-finite, dst is filled with silence and
// [ErrNonFiniteBlock] is returned; length misuse returns a plain error with
// dst untouched. For finite input and correct lengths the call never fails.
func (c *Chain) Process(dst, src []float64, p Params) error {
	if len(src) != c.blockSize || len(dst) != c.blockSize {
		return fmt.Errorf("chain block length must be %d: src %d, dst %d", c.blockSize, len(src), len(dst))
	}

	semitones := p.Semitones
	if semitones > semitoneLimit {
		semitones = semitoneLimit
	} else if semitones < -semitoneLimit {
		semitones = -semitoneLimit
	}

	if math.Abs(semitones) >= pitchBypassThreshold {
		err := c.shifter.Process(c.work, src, pitch.RatioForSemitones(semitones))
		if err != nil {
			zero(dst)
			return fmt.Errorf("%w: %w", ErrNonFiniteBlock, err)
		}
	} else {
		copy(c.work, src)
	}

	if p.Robotic {
		c.robot.ProcessInPlace(c.work)
	}

	vecmath.ScaleBlock(c.work, c.work, c.outputGain)

	peak := 0.0

	for _, v := range c.work {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			zero(dst)
			return ErrNonFiniteBlock
		}

		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	// Silent blocks skip scaling entirely; scaling by 0/0 is the only way
	// normalization can fault.
	if peak > c.normalizeTarget {
		vecmath.ScaleBlock(dst, c.work, c.normalizeTarget/peak)
		return nil
	}

	copy(dst, c.work)

	return nil
}

func zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}
