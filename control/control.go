// Package control holds the parameter state shared between the interactive
// control thread and the real-time audio thread.
//
// The relationship is single-writer/single-reader: the control thread is the
// only mutator (through Apply), and the audio callback reads one Snapshot per
// block. Every field is individually atomic, so the reader can never observe
// a half-written value; it may observe a stale-but-consistent combination of
// fields, which is acceptable. Neither side ever blocks the other.
package control

import (
	"math"
	"sync/atomic"
)

const (
	defaultSemitones = 3.0
	defaultStep      = 0.5
	semitoneLimit    = 24.0
)

// Event is a discrete parameter-change request from the control-input source.
type Event int

const (
	// EventNone is the zero value and changes nothing.
	EventNone Event = iota
	// EventPitchUp raises the pitch offset by one step.
	EventPitchUp
	// EventPitchDown lowers the pitch offset by one step.
	EventPitchDown
	// EventToggleRobotic flips the robotic effect on or off.
	EventToggleRobotic
	// EventTogglePushToTalk flips push-to-talk mode; leaving the mode
	// also clears the talking flag.
	EventTogglePushToTalk
	// EventToggleTalk flips the talking flag while push-to-talk is on.
	EventToggleTalk
	// EventReset restores the default pitch offset.
	EventReset
	// EventQuit requests shutdown. It does not mutate state; the owner of
	// the event loop is expected to act on it.
	EventQuit
)

// Snapshot is an immutable copy of the control state, taken once per audio
// callback invocation.
type Snapshot struct {
	Semitones  float64
	Robotic    bool
	PushToTalk bool
	Talking    bool
}

// State is the shared parameter store. The zero value is not usable; create
// it with NewState.
type State struct {
	semitones  atomic.Uint64
	robotic    atomic.Bool
	pushToTalk atomic.Bool
	talking    atomic.Bool

	defaultSemitones float64
	step             float64
	limit            float64
}

// Option mutates state construction parameters.
type Option func(*State)

// WithDefaultSemitones sets the initial and reset pitch offset. Values are
// clamped to the semitone limit.
func WithDefaultSemitones(semitones float64) Option {
	return func(s *State) {
		if !math.IsNaN(semitones) && !math.IsInf(semitones, 0) {
			s.defaultSemitones = semitones
		}
	}
}

// WithStep sets the per-event pitch increment in semitones.
func WithStep(step float64) Option {
	return func(s *State) {
		if step > 0 && !math.IsInf(step, 0) {
			s.step = step
		}
	}
}

// WithRoboticEnabled sets the initial robotic effect toggle.
func WithRoboticEnabled(enabled bool) Option {
	return func(s *State) {
		s.robotic.Store(enabled)
	}
}

// NewState creates a control state with the given overrides applied.
func NewState(opts ...Option) *State {
	s := &State{
		defaultSemitones: defaultSemitones,
		step:             defaultStep,
		limit:            semitoneLimit,
	}
	s.robotic.Store(true)

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.defaultSemitones = clamp(s.defaultSemitones, -s.limit, s.limit)
	s.storeSemitones(s.defaultSemitones)

	return s
}

// Apply executes one control event. It must only be called from the control
// thread; concurrent writers are not supported.
func (s *State) Apply(e Event) {
	switch e {
	case EventPitchUp:
		s.storeSemitones(clamp(s.loadSemitones()+s.step, -s.limit, s.limit))
	case EventPitchDown:
		s.storeSemitones(clamp(s.loadSemitones()-s.step, -s.limit, s.limit))
	case EventToggleRobotic:
		s.robotic.Store(!s.robotic.Load())
	case EventTogglePushToTalk:
		enabled := !s.pushToTalk.Load()
		s.pushToTalk.Store(enabled)

		if !enabled {
			s.talking.Store(false)
		}
	case EventToggleTalk:
		if s.pushToTalk.Load() {
			s.talking.Store(!s.talking.Load())
		}
	case EventReset:
		s.storeSemitones(s.defaultSemitones)
	case EventNone, EventQuit:
	}
}

// Snapshot returns a consistent-per-field copy of the current state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Semitones:  s.loadSemitones(),
		Robotic:    s.robotic.Load(),
		PushToTalk: s.pushToTalk.Load(),
		Talking:    s.talking.Load(),
	}
}

func (s *State) loadSemitones() float64 {
	return math.Float64frombits(s.semitones.Load())
}

func (s *State) storeSemitones(v float64) {
	s.semitones.Store(math.Float64bits(v))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
