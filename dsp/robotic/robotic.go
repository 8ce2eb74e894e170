package robotic

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-voicemod/dsp/carrier"
)

const (
	defaultIntensity  = 0.7
	defaultBitDepth   = 10
	defaultDriveGain  = 1.2
	defaultOutputTrim = 0.9
	minBitDepth       = 1
	maxBitDepth       = 32
	maxDriveGain      = 16.0
)

// Option mutates robotic effect construction parameters.
type Option func(*config) error

type config struct {
	intensity  float64
	bitDepth   int
	driveGain  float64
	outputTrim float64
}

func defaultConfig() config {
	return config{
		intensity:  defaultIntensity,
		bitDepth:   defaultBitDepth,
		driveGain:  defaultDriveGain,
		outputTrim: defaultOutputTrim,
	}
}

// WithIntensity sets the dry/wet blend of the ring modulation in [0, 1],
// where 0 is fully dry and 1 is fully ring-modulated.
func WithIntensity(intensity float64) Option {
	return func(cfg *config) error {
		if intensity < 0 || intensity > 1 || math.IsNaN(intensity) || math.IsInf(intensity, 0) {
			return fmt.Errorf("robotic intensity must be in [0, 1]: %f", intensity)
		}

		cfg.intensity = intensity

		return nil
	}
}

// WithBitDepth sets the bit-crush quantization depth in [1, 32].
func WithBitDepth(bits int) Option {
	return func(cfg *config) error {
		if bits < minBitDepth || bits > maxBitDepth {
			return fmt.Errorf("robotic bit depth must be in [%d, %d]: %d", minBitDepth, maxBitDepth, bits)
		}

		cfg.bitDepth = bits

		return nil
	}
}

// WithDriveGain sets the soft-clip drive gain in (0, 16].
func WithDriveGain(drive float64) Option {
	return func(cfg *config) error {
		if drive <= 0 || drive > maxDriveGain || math.IsNaN(drive) || math.IsInf(drive, 0) {
			return fmt.Errorf("robotic drive gain must be in (0, %g]: %f", maxDriveGain, drive)
		}

		cfg.driveGain = drive

		return nil
	}
}

// WithOutputTrim sets the post-clip output trim in (0, 1].
func WithOutputTrim(trim float64) Option {
	return func(cfg *config) error {
		if trim <= 0 || trim > 1 || math.IsNaN(trim) || math.IsInf(trim, 0) {
			return fmt.Errorf("robotic output trim must be in (0, 1]: %f", trim)
		}

		cfg.outputTrim = trim

		return nil
	}
}

// Effect ring-modulates the input against a precomputed sine carrier,
// quantizes the result to a reduced bit depth, and soft-clips it.
//
// The carrier read cursor advances by the block length after every call, so
// the carrier phase is continuous across block boundaries. Resetting the
// cursor between consecutive blocks would click audibly at every block edge.
//
// An Effect is not safe for concurrent use; the carrier table it reads is.
type Effect struct {
	table      *carrier.Table
	intensity  float64
	bitDepth   int
	driveGain  float64
	outputTrim float64

	quantLevels float64
	cursor      int
}

// New creates a robotic effect reading the given carrier table, with
// optional configuration overrides.
func New(table *carrier.Table, opts ...Option) (*Effect, error) {
	if table == nil {
		return nil, fmt.Errorf("robotic effect carrier table must not be nil")
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

	e := &Effect{
		table:      table,
		intensity:  cfg.intensity,
		bitDepth:   cfg.bitDepth,
		driveGain:  cfg.driveGain,
		outputTrim: cfg.outputTrim,
	}
	e.updateQuantLevels()

	return e, nil
}

// SetIntensity sets the dry/wet blend in [0, 1].
func (e *Effect) SetIntensity(intensity float64) error {
	if intensity < 0 || intensity > 1 || math.IsNaN(intensity) || math.IsInf(intensity, 0) {
		return fmt.Errorf("robotic intensity must be in [0, 1]: %f", intensity)
	}

	e.intensity = intensity

	return nil
}

// Intensity returns the dry/wet blend in [0, 1].
func (e *Effect) Intensity() float64 { return e.intensity }

// BitDepth returns the bit-crush quantization depth.
func (e *Effect) BitDepth() int { return e.bitDepth }

// Cursor returns the current carrier read position.
func (e *Effect) Cursor() int { return e.cursor }

// Reset rewinds the carrier cursor to the start of the table.
func (e *Effect) Reset() {
	e.cursor = 0
}

// ProcessInPlace applies the robotic effect to buf in place and advances the
// carrier cursor by len(buf).
func (e *Effect) ProcessInPlace(buf []float64) {
	for k, sample := range buf {
		c := e.table.At(e.cursor + k)
		modulated := sample*c*e.intensity + sample*(1-e.intensity)
		crushed := math.Round(modulated*e.quantLevels) / e.quantLevels
		buf[k] = softClip(crushed*e.driveGain) * e.outputTrim
	}

	e.cursor = (e.cursor + len(buf)) % e.table.Len()
}

func (e *Effect) updateQuantLevels() {
	e.quantLevels = math.Exp2(float64(e.bitDepth))
}
