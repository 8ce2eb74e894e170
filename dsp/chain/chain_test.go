package chain

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-voicemod/dsp/carrier"
	"github.com/cwbudde/algo-voicemod/internal/testutil"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		opts       []Option
		wantErr    bool
	}{
		{name: "valid defaults", sampleRate: 48000, wantErr: false},
		{name: "invalid zero rate", sampleRate: 0, wantErr: true},
		{name: "invalid NaN rate", sampleRate: math.NaN(), wantErr: true},
		{name: "invalid block size", sampleRate: 48000, opts: []Option{WithBlockSize(-1)}, wantErr: true},
		{name: "non-pow2 block size", sampleRate: 48000, opts: []Option{WithBlockSize(1000)}, wantErr: true},
		{name: "invalid gain", sampleRate: 48000, opts: []Option{WithOutputGain(0)}, wantErr: true},
		{name: "invalid ceiling", sampleRate: 48000, opts: []Option{WithNormalizeTarget(1.5)}, wantErr: true},
		{name: "bad carrier option", sampleRate: 48000, opts: []Option{WithCarrierOptions(carrier.WithFrequency(-1))}, wantErr: true},
		{
			name:       "full configuration",
			sampleRate: 48000,
			opts: []Option{
				WithBlockSize(1024),
				WithOutputGain(2.2),
				WithNormalizeTarget(0.95),
				WithCarrierOptions(carrier.WithFrequency(95)),
			},
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.sampleRate, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				return
			}

			if c.BlockSize() <= 0 {
				t.Fatalf("BlockSize() = %d, want > 0", c.BlockSize())
			}
		})
	}
}

func TestProcessAllZeroInputGivesAllZeroOutput(t *testing.T) {
	c, err := New(48000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	src := make([]float64, c.BlockSize())
	dst := make([]float64, c.BlockSize())

	if err := c.Process(dst, src, Params{Semitones: 3, Robotic: true}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	for i, v := range dst {
		if v != 0 {
			t.Fatalf("dst[%d] = %v, want 0", i, v)
		}
	}
}

func TestProcessPeakNeverExceedsCeiling(t *testing.T) {
	c, err := New(48000, WithNormalizeTarget(0.95))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	src := testutil.Sine(440, 48000, 0.9, c.BlockSize())
	dst := make([]float64, c.BlockSize())

	for _, p := range []Params{
		{Semitones: 3, Robotic: false},
		{Semitones: 3, Robotic: true},
		{Semitones: -7, Robotic: true},
		{Semitones: 0, Robotic: true},
	} {
		if err := c.Process(dst, src, p); err != nil {
			t.Fatalf("Process(%+v) error = %v", p, err)
		}

		if peak := testutil.MaxAbs(dst); peak > 0.95+1e-12 {
			t.Fatalf("params %+v: peak = %v, want <= 0.95", p, peak)
		}
	}
}

func TestProcessSineWithPitchShiftMeetsCeiling(t *testing.T) {
	// 256-sample sine, +3 semitones (ratio 2^(3/12) ~ 1.1892), robotic off:
	// output must stay full length with peak at most the ceiling.
	c, err := New(48000, WithBlockSize(256))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	src := testutil.Sine(2437.5, 48000, 0.8, 256)
	dst := make([]float64, 256)

	if err := c.Process(dst, src, Params{Semitones: 3}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(dst) != 256 {
		t.Fatalf("len(dst) = %d, want 256", len(dst))
	}

	if peak := testutil.MaxAbs(dst); peak > 0.95+1e-12 {
		t.Fatalf("peak = %v, want <= 0.95", peak)
	}

	testutil.RequireFinite(t, dst)
}

func TestProcessBypassesPitchForTinyOffsets(t *testing.T) {
	c, err := New(48000, WithOutputGain(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	src := testutil.Sine(440, 48000, 0.5, c.BlockSize())
	dst := make([]float64, c.BlockSize())

	if err := c.Process(dst, src, Params{Semitones: 0.05}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// Below the bypass threshold the chain is a pure copy at unit gain.
	if rms := testutil.RMSError(dst, src); rms > 1e-12 {
		t.Fatalf("RMS difference = %v, want 0 for bypassed pitch", rms)
	}
}

func TestProcessSilencesNonFiniteInput(t *testing.T) {
	c, err := New(48000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	src := make([]float64, c.BlockSize())
	src[10] = math.NaN()
	src[20] = math.Inf(1)

	dst := make([]float64, c.BlockSize())
	for i := range dst {
		dst[i] = 0.5
	}

	err = c.Process(dst, src, Params{Semitones: 0, Robotic: false})
	if !errors.Is(err, ErrNonFiniteBlock) {
		t.Fatalf("Process() error = %v, want ErrNonFiniteBlock", err)
	}

	for i, v := range dst {
		if v != 0 {
			t.Fatalf("dst[%d] = %v, want silence", i, v)
		}
	}
}

func TestProcessLengthMismatch(t *testing.T) {
	c, err := New(48000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	src := make([]float64, c.BlockSize())
	short := make([]float64, c.BlockSize()-1)

	if err := c.Process(short, src, Params{}); err == nil {
		t.Fatal("expected error for short dst")
	}

	if err := c.Process(src, short, Params{}); err == nil {
		t.Fatal("expected error for short src")
	}
}

func TestProcessTogglingRoboticOnlyAffectsSubsequentBlocks(t *testing.T) {
	c, err := New(48000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	src := testutil.Sine(330, 48000, 0.5, c.BlockSize())

	first := make([]float64, c.BlockSize())
	if err := c.Process(first, src, Params{Semitones: 3, Robotic: false}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	kept := make([]float64, len(first))
	copy(kept, first)

	second := make([]float64, c.BlockSize())
	if err := c.Process(second, src, Params{Semitones: 3, Robotic: true}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// The earlier output buffer must be untouched by later processing.
	if rms := testutil.RMSError(first, kept); rms != 0 {
		t.Fatalf("previous block mutated, RMS difference = %v", rms)
	}

	if rms := testutil.RMSError(first, second); rms == 0 {
		t.Fatal("robotic toggle produced identical output")
	}
}

func TestProcessClampsExtremeSemitones(t *testing.T) {
	c, err := New(48000)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	src := testutil.Sine(440, 48000, 0.5, c.BlockSize())
	dst := make([]float64, c.BlockSize())

	// +40 semitones clamps to +24, which stays inside the shifter's legal
	// ratio range instead of failing.
	if err := c.Process(dst, src, Params{Semitones: 40}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	testutil.RequireFinite(t, dst)
}
