// Package engine owns the duplex stream lifecycle and the real-time audio
// callback that wires input blocks through the effect chain.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cwbudde/algo-voicemod/control"
	"github.com/cwbudde/algo-voicemod/dsp/carrier"
	"github.com/cwbudde/algo-voicemod/dsp/chain"
	"github.com/cwbudde/algo-voicemod/dsp/robotic"
)

// State tracks the engine lifecycle. Transitions only move forward except
// for the Running/Stopped pair, which may alternate until Close.
type State int32

const (
	StateUninitialized State = iota
	StateOpen
	StateRunning
	StateStopped
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateOpen:
		return "open"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrInvalidTransition reports a lifecycle call made from the wrong state.
var ErrInvalidTransition = errors.New("invalid engine state transition")

// StreamConfig describes the duplex stream the engine asks its provider to
// open: mono capture, stereo playback, fixed block size.
type StreamConfig struct {
	SampleRate     int
	BlockSize      int
	InputChannels  int
	OutputChannels int
}

// DataFunc is invoked once per block with exactly BlockSize mono input
// samples and a stereo interleaved output buffer of 2*BlockSize samples that
// must be fully written before returning.
type DataFunc func(in, out []float64)

// StopFunc is invoked when the stream stops outside an explicit Stop call,
// for example on device loss.
type StopFunc func(err error)

// Provider opens and drives a duplex audio stream. Implementations deliver
// blocks in strict order on their own real-time thread.
type Provider interface {
	Open(cfg StreamConfig, onBlock DataFunc, onStop StopFunc) error
	Start() error
	Stop() error
	Close() error
}

// Diagnostic is an out-of-band event code emitted by the audio callback.
// The callback never logs or blocks; it pushes codes into a bounded channel
// drained by a non-real-time goroutine.
type Diagnostic int

const (
	// DiagSilencedBlock reports a block replaced with silence after a
	// numeric fault.
	DiagSilencedBlock Diagnostic = iota + 1
	// DiagBadBlockSize reports a callback invocation with an unexpected
	// buffer length; the block is silenced.
	DiagBadBlockSize
	// DiagStreamStopped reports an unexpected stream stop signaled by the
	// provider.
	DiagStreamStopped
)

// String returns the diagnostic name.
func (d Diagnostic) String() string {
	switch d {
	case DiagSilencedBlock:
		return "silenced block"
	case DiagBadBlockSize:
		return "bad block size"
	case DiagStreamStopped:
		return "stream stopped"
	default:
		return fmt.Sprintf("diagnostic(%d)", int(d))
	}
}

const diagnosticBuffer = 64

// Engine owns the effect chain, the control-state snapshot per block, and
// the provider-driven callback. Lifecycle methods are serialized by a mutex
// held only on the control side; the audio callback never takes it.
type Engine struct {
	cfg     Config
	chain   *chain.Chain
	control *control.State

	provider Provider

	mu      sync.Mutex
	state   State
	lastErr error

	procBuf []float64

	diag chan Diagnostic
}

// New creates an engine with the given configuration, shared control state,
// and stream provider. The engine starts Uninitialized; call Open.
func New(cfg Config, ctrl *control.State, provider Provider) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if ctrl == nil {
		return nil, errors.New("engine control state must not be nil")
	}

	if provider == nil {
		return nil, errors.New("engine provider must not be nil")
	}

	c, err := chain.New(float64(cfg.SampleRate),
		chain.WithBlockSize(cfg.BlockSize),
		chain.WithOutputGain(cfg.OutputGain),
		chain.WithNormalizeTarget(cfg.NormalizeTarget),
		chain.WithCarrierOptions(carrier.WithFrequency(cfg.CarrierHz)),
		chain.WithRoboticOptions(
			robotic.WithIntensity(cfg.RoboticIntensity),
			robotic.WithBitDepth(cfg.BitDepth),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		chain:    c,
		control:  ctrl,
		provider: provider,
		state:    StateUninitialized,
		diag:     make(chan Diagnostic, diagnosticBuffer),
	}, nil
}

// Config returns the immutable engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state
}

// Err returns the structural error that stopped the stream, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.lastErr
}

// Diagnostics returns the channel of out-of-band callback event codes.
// It must be drained by a non-real-time goroutine; when full, new codes are
// dropped rather than blocking the audio thread.
func (e *Engine) Diagnostics() <-chan Diagnostic { return e.diag }

// Open allocates the duplex stream and all fixed-size working buffers.
func (e *Engine) Open() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateUninitialized {
		return fmt.Errorf("%w: open from %s", ErrInvalidTransition, e.state)
	}

	streamCfg := StreamConfig{
		SampleRate:     e.cfg.SampleRate,
		BlockSize:      e.cfg.BlockSize,
		InputChannels:  1,
		OutputChannels: 2,
	}

	if err := e.provider.Open(streamCfg, e.onBlock, e.onStreamStop); err != nil {
		return fmt.Errorf("engine: open stream: %w", err)
	}

	e.procBuf = make([]float64, e.cfg.BlockSize)
	e.state = StateOpen

	return nil
}

// Start begins callback invocation. Valid from Open or Stopped.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateOpen && e.state != StateStopped {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, e.state)
	}

	if err := e.provider.Start(); err != nil {
		return fmt.Errorf("engine: start stream: %w", err)
	}

	e.state = StateRunning

	return nil
}

// Stop halts callback invocation without releasing buffers, allowing a
// later Start. Stopping is cooperative: a callback already in progress runs
// to completion.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, e.state)
	}

	if err := e.provider.Stop(); err != nil {
		return fmt.Errorf("engine: stop stream: %w", err)
	}

	e.state = StateStopped

	return nil
}

// Close releases the stream. Close is terminal; the engine cannot be
// reopened. Valid from any state except Uninitialized; closing a running
// engine stops it first.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateClosed:
		return nil
	case StateUninitialized:
		e.state = StateClosed
		return nil
	case StateRunning:
		if err := e.provider.Stop(); err != nil {
			e.lastErr = err
		}
	case StateOpen, StateStopped:
	}

	err := e.provider.Close()

	e.state = StateClosed

	if err != nil {
		return fmt.Errorf("engine: close stream: %w", err)
	}

	return nil
}

// onBlock is the real-time callback. It must not block, allocate, perform
// I/O, or log; any failure degrades to silence for that block.
func (e *Engine) onBlock(in, out []float64) {
	if len(in) != e.cfg.BlockSize || len(out) != 2*e.cfg.BlockSize {
		zero(out)
		e.report(DiagBadBlockSize)

		return
	}

	snap := e.control.Snapshot()

	if snap.PushToTalk && !snap.Talking {
		zero(out)

		return
	}

	err := e.chain.Process(e.procBuf, in, chain.Params{
		Semitones: snap.Semitones,
		Robotic:   snap.Robotic,
	})
	if err != nil {
		// The chain already wrote silence into procBuf on a numeric
		// fault; misuse errors leave it stale, so clear the output
		// directly either way.
		zero(out)
		e.report(DiagSilencedBlock)

		return
	}

	for i, v := range e.procBuf {
		out[2*i] = v
		out[2*i+1] = v
	}
}

// onStreamStop handles provider-signaled stops (device loss, backend
// failure). The engine transitions to Stopped and surfaces the error; it
// does not attempt automatic failover.
func (e *Engine) onStreamStop(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateRunning {
		e.state = StateStopped
	}

	if err != nil {
		e.lastErr = err
	}

	e.report(DiagStreamStopped)
}

// report pushes a diagnostic without ever blocking.
func (e *Engine) report(d Diagnostic) {
	select {
	case e.diag <- d:
	default:
	}
}

func zero(buf []float64) {
	for i := range buf {
		buf[i] = 0
	}
}
