package carrier

import (
	"fmt"
	"math"
)

const (
	defaultCarrierFrequencyHz = 95.0
	defaultCarrierDurationSec = 0.1
	minCarrierDurationSec     = 0.001
	maxCarrierDurationSec     = 10.0
)

// Option mutates carrier table construction parameters.
type Option func(*config) error

type config struct {
	frequencyHz float64
	durationSec float64
}

func defaultConfig() config {
	return config{
		frequencyHz: defaultCarrierFrequencyHz,
		durationSec: defaultCarrierDurationSec,
	}
}

// WithFrequency sets the carrier oscillator frequency in Hz.
func WithFrequency(frequencyHz float64) Option {
	return func(cfg *config) error {
		if frequencyHz <= 0 || math.IsNaN(frequencyHz) || math.IsInf(frequencyHz, 0) {
			return fmt.Errorf("carrier frequency must be > 0 and finite: %f", frequencyHz)
		}

		cfg.frequencyHz = frequencyHz

		return nil
	}
}

// WithTargetDuration sets the target table duration in seconds. The actual
// table length is rounded so it holds a whole number of carrier cycles.
func WithTargetDuration(durationSec float64) Option {
	return func(cfg *config) error {
		if durationSec < minCarrierDurationSec || durationSec > maxCarrierDurationSec ||
			math.IsNaN(durationSec) || math.IsInf(durationSec, 0) {
			return fmt.Errorf("carrier duration must be in [%g, %g]: %f",
				minCarrierDurationSec, maxCarrierDurationSec, durationSec)
		}

		cfg.durationSec = durationSec

		return nil
	}
}

// Table is a precomputed sine carrier lookup table.
//
// The table holds a whole number of carrier cycles, so reading it cyclically
// produces a continuous waveform with no discontinuity at the wrap point.
// Because the length is quantized to whole cycles, the realized frequency can
// differ slightly from the requested one; see [Table.EffectiveFrequency].
//
// A Table is immutable after construction and safe for concurrent readers.
type Table struct {
	sampleRate  float64
	frequencyHz float64
	cycles      int
	samples     []float64
}

// New creates a carrier table for the given sample rate and optional
// configuration overrides.
func New(sampleRate float64, opts ...Option) (*Table, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("carrier sample rate must be > 0 and finite: %f", sampleRate)
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

	cycles := max(int(math.Round(cfg.frequencyHz*cfg.durationSec)), 1)

	length := int(math.Round(float64(cycles) * sampleRate / cfg.frequencyHz))
	if length < 1 {
		return nil, fmt.Errorf("carrier table would be empty: frequency %f Hz at %f Hz sample rate",
			cfg.frequencyHz, sampleRate)
	}

	t := &Table{
		sampleRate:  sampleRate,
		frequencyHz: cfg.frequencyHz,
		cycles:      cycles,
		samples:     make([]float64, length),
	}

	step := 2 * math.Pi * float64(cycles) / float64(length)
	for i := range t.samples {
		t.samples[i] = math.Sin(step * float64(i))
	}

	return t, nil
}

// Len returns the table length in samples.
func (t *Table) Len() int { return len(t.samples) }

// At returns the carrier value at index i modulo the table length.
// i must be non-negative.
func (t *Table) At(i int) float64 {
	return t.samples[i%len(t.samples)]
}

// SampleRate returns the sample rate in Hz.
func (t *Table) SampleRate() float64 { return t.sampleRate }

// Frequency returns the requested carrier frequency in Hz.
func (t *Table) Frequency() float64 { return t.frequencyHz }

// Cycles returns the number of whole carrier cycles stored in the table.
func (t *Table) Cycles() int { return t.cycles }

// EffectiveFrequency returns the realized carrier frequency in Hz after
// quantizing the table length to whole cycles.
func (t *Table) EffectiveFrequency() float64 {
	return float64(t.cycles) * t.sampleRate / float64(len(t.samples))
}
