// Package keys turns raw terminal keystrokes into control events. The
// terminal is switched to raw mode so single keypresses arrive without a
// newline, and restored on Close.
package keys

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/cwbudde/algo-voicemod/control"
)

const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
)

// Reader owns the raw-mode terminal state and the decoding goroutine.
type Reader struct {
	in      io.Reader
	fd      int
	events  chan control.Event
	restore func() error
	done    chan struct{}
}

// Option configures a Reader.
type Option func(*Reader)

// WithInput replaces the input source. Raw mode is skipped when the source
// is not the terminal, which keeps the decoder testable.
func WithInput(in io.Reader) Option {
	return func(r *Reader) {
		r.in = in
		r.fd = -1
	}
}

// NewReader creates a reader over stdin.
func NewReader(opts ...Option) *Reader {
	r := &Reader{
		in:     os.Stdin,
		fd:     int(os.Stdin.Fd()),
		events: make(chan control.Event, 16),
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Events returns the decoded event stream. The channel closes when the
// input source ends or the reader is closed.
func (r *Reader) Events() <-chan control.Event { return r.events }

// Start switches the terminal to raw mode and launches the decode loop.
func (r *Reader) Start() error {
	if r.fd >= 0 {
		if !term.IsTerminal(r.fd) {
			return errors.New("stdin is not a terminal")
		}

		oldState, err := term.MakeRaw(r.fd)
		if err != nil {
			return fmt.Errorf("enter raw mode: %w", err)
		}

		fd := r.fd
		r.restore = func() error { return term.Restore(fd, oldState) }
	}

	go r.run()

	return nil
}

// Close restores the terminal state. It does not interrupt a blocked read;
// the decode loop exits on the next byte or on input EOF.
func (r *Reader) Close() error {
	select {
	case <-r.done:
	default:
		close(r.done)
	}

	if r.restore != nil {
		err := r.restore()
		r.restore = nil

		return err
	}

	return nil
}

func (r *Reader) run() {
	defer close(r.events)

	buf := make([]byte, 8)

	for {
		n, err := r.in.Read(buf)

		for _, e := range decodeEvents(buf[:n]) {
			select {
			case r.events <- e:
			case <-r.done:
				return
			}

			if e == control.EventQuit {
				return
			}
		}

		if err != nil {
			return
		}

		select {
		case <-r.done:
			return
		default:
		}
	}
}

// decodeEvents maps one read's worth of bytes to control events. Arrow keys
// arrive as three-byte escape sequences; everything else is a single byte.
func decodeEvents(buf []byte) []control.Event {
	var events []control.Event

	for i := 0; i < len(buf); {
		b := buf[i]

		if b == keyEscape {
			if i+2 < len(buf) && buf[i+1] == '[' {
				switch buf[i+2] {
				case 'A':
					events = append(events, control.EventPitchUp)
				case 'B':
					events = append(events, control.EventPitchDown)
				}

				i += 3

				continue
			}

			// A bare escape quits.
			events = append(events, control.EventQuit)
			i++

			continue
		}

		if e := mapKey(b); e != control.EventNone {
			events = append(events, e)
		}

		i++
	}

	return events
}

func mapKey(b byte) control.Event {
	switch b {
	case '+', '=':
		return control.EventPitchUp
	case '-', '_':
		return control.EventPitchDown
	case 'r', 'R':
		return control.EventToggleRobotic
	case 'p', 'P':
		return control.EventTogglePushToTalk
	case ' ':
		return control.EventToggleTalk
	case '0':
		return control.EventReset
	case 'q', 'Q', keyCtrlC:
		return control.EventQuit
	default:
		return control.EventNone
	}
}
