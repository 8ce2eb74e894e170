package pitch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
)

const (
	defaultShifterBlockSize = 256
	minShifterBlockSize     = 32
	maxShiftRatio           = 8.0
)

// Option mutates shifter construction parameters.
type Option func(*config) error

type config struct {
	blockSize int
}

func defaultConfig() config {
	return config{blockSize: defaultShifterBlockSize}
}

// WithBlockSize sets the processing block size in samples.
// size must be a power of two and >= 32.
func WithBlockSize(size int) Option {
	return func(cfg *config) error {
		if size < minShifterBlockSize || !isPowerOfTwo(size) {
			return fmt.Errorf("pitch shifter block size must be power-of-two and >= %d: %d",
				minShifterBlockSize, size)
		}

		cfg.blockSize = size

		return nil
	}
}

// Shifter performs frequency-domain pitch shifting on fixed-size blocks by
// redistributing spectral energy across frequency bins.
//
// For each source bin i in [0, N/2], the destination bin is floor(i/ratio);
// bins that collide are summed, and bins that map past N/2 are discarded.
// This is a deliberately simple single-block technique: it has no phase
// tracking across blocks and trades artifact quality for a processing cost
// low enough to run inside a real-time callback deadline.
//
// All working buffers are allocated at construction; Process performs no
// allocation. A Shifter is not safe for concurrent use.
type Shifter struct {
	sampleRate float64
	blockSize  int

	plan *algofft.Plan[complex128]

	timeBuf    []complex128
	shiftedBuf []complex128
}

// New creates a pitch shifter for the given sample rate and optional
// configuration overrides.
func New(sampleRate float64, opts ...Option) (*Shifter, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("pitch shifter sample rate must be > 0 and finite: %f", sampleRate)
	}

	cfg := defaultConfig()

	for _, opt := range opts {
		if opt == nil {
			continue
		}

		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	plan, err := algofft.NewPlan64(cfg.blockSize)
	if err != nil {
		return nil, fmt.Errorf("pitch shifter: failed to create FFT plan: %w", err)
	}

	return &Shifter{
		sampleRate: sampleRate,
		blockSize:  cfg.blockSize,
		plan:       plan,
		timeBuf:    make([]complex128, cfg.blockSize),
		shiftedBuf: make([]complex128, cfg.blockSize),
	}, nil
}

// SampleRate returns the sample rate in Hz.
func (s *Shifter) SampleRate() float64 { return s.sampleRate }

// BlockSize returns the fixed block size in samples.
func (s *Shifter) BlockSize() int { return s.blockSize }

// RatioForSemitones converts a semitone offset to a pitch ratio 2^(st/12).
func RatioForSemitones(semitones float64) float64 {
	return math.Exp2(semitones / 12.0)
}

// Process pitch-shifts src into dst by the given ratio.
//
// dst and src must both have exactly BlockSize samples; dst always receives
// exactly BlockSize samples. ratio must be finite and in (0, 8].
func (s *Shifter) Process(dst, src []float64, ratio float64) error {
	if len(src) != s.blockSize {
		return fmt.Errorf("pitch shifter input length must be %d: %d", s.blockSize, len(src))
	}

	if len(dst) != s.blockSize {
		return fmt.Errorf("pitch shifter output length must be %d: %d", s.blockSize, len(dst))
	}

	if ratio <= 0 || ratio > maxShiftRatio || math.IsNaN(ratio) {
		return fmt.Errorf("pitch shifter ratio must be in (0, %g]: %f", maxShiftRatio, ratio)
	}

	for i, x := range src {
		s.timeBuf[i] = complex(x, 0)
	}

	err := s.plan.Forward(s.timeBuf, s.timeBuf)
	if err != nil {
		return fmt.Errorf("pitch shifter: forward FFT failed: %w", err)
	}

	half := s.blockSize / 2

	for i := range s.shiftedBuf {
		s.shiftedBuf[i] = 0
	}

	// Accumulate colliding bins instead of overwriting: multiple source
	// bins may alias into one destination bin, and the energy must sum.
	// Destination bins past N/2 (ratio < 1) are discarded.
	for i := 0; i <= half; i++ {
		j := int(float64(i) / ratio)
		if j <= half {
			s.shiftedBuf[j] += s.timeBuf[i]
		}
	}

	// Mirror for a real-valued inverse transform.
	s.shiftedBuf[0] = complex(real(s.shiftedBuf[0]), 0)

	s.shiftedBuf[half] = complex(real(s.shiftedBuf[half]), 0)
	for k := 1; k < half; k++ {
		v := s.shiftedBuf[k]
		s.shiftedBuf[s.blockSize-k] = complex(real(v), -imag(v))
	}

	err = s.plan.Inverse(s.timeBuf, s.shiftedBuf)
	if err != nil {
		return fmt.Errorf("pitch shifter: inverse FFT failed: %w", err)
	}

	for i := range dst {
		dst[i] = real(s.timeBuf[i])
	}

	return nil
}

// ProcessInPlace pitch-shifts buf in place by the given ratio.
func (s *Shifter) ProcessInPlace(buf []float64, ratio float64) error {
	return s.Process(buf, buf, ratio)
}

func isPowerOfTwo(v int) bool {
	return v > 0 && (v&(v-1)) == 0
}
