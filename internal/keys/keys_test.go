package keys

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-voicemod/control"
)

func TestDecodeEvents(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []control.Event
	}{
		{name: "plus raises pitch", input: "+", want: []control.Event{control.EventPitchUp}},
		{name: "equals raises pitch", input: "=", want: []control.Event{control.EventPitchUp}},
		{name: "minus lowers pitch", input: "-", want: []control.Event{control.EventPitchDown}},
		{name: "underscore lowers pitch", input: "_", want: []control.Event{control.EventPitchDown}},
		{name: "r toggles robotic", input: "r", want: []control.Event{control.EventToggleRobotic}},
		{name: "uppercase R toggles robotic", input: "R", want: []control.Event{control.EventToggleRobotic}},
		{name: "p toggles push to talk", input: "p", want: []control.Event{control.EventTogglePushToTalk}},
		{name: "space toggles talk", input: " ", want: []control.Event{control.EventToggleTalk}},
		{name: "zero resets", input: "0", want: []control.Event{control.EventReset}},
		{name: "q quits", input: "q", want: []control.Event{control.EventQuit}},
		{name: "ctrl-c quits", input: "\x03", want: []control.Event{control.EventQuit}},
		{name: "bare escape quits", input: "\x1b", want: []control.Event{control.EventQuit}},
		{name: "arrow up raises pitch", input: "\x1b[A", want: []control.Event{control.EventPitchUp}},
		{name: "arrow down lowers pitch", input: "\x1b[B", want: []control.Event{control.EventPitchDown}},
		{name: "unknown arrow ignored", input: "\x1b[C", want: nil},
		{name: "unmapped key ignored", input: "x", want: nil},
		{name: "mixed sequence", input: "+\x1b[B r", want: []control.Event{
			control.EventPitchUp,
			control.EventPitchDown,
			control.EventToggleTalk,
			control.EventToggleRobotic,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeEvents([]byte(tt.input)))
		})
	}
}

func collectEvents(t *testing.T, r *Reader, n int) []control.Event {
	t.Helper()

	var got []control.Event

	timeout := time.After(time.Second)

	for len(got) < n {
		select {
		case e, ok := <-r.Events():
			if !ok {
				return got
			}

			got = append(got, e)
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(got), n)
		}
	}

	return got
}

func TestReaderStreamsEventsFromInput(t *testing.T) {
	r := NewReader(WithInput(strings.NewReader("+-r")))
	require.NoError(t, r.Start())
	defer r.Close()

	got := collectEvents(t, r, 3)
	assert.Equal(t, []control.Event{
		control.EventPitchUp,
		control.EventPitchDown,
		control.EventToggleRobotic,
	}, got)
}

func TestReaderStopsAfterQuit(t *testing.T) {
	r := NewReader(WithInput(strings.NewReader("q+++")))
	require.NoError(t, r.Start())
	defer r.Close()

	got := collectEvents(t, r, 1)
	require.Equal(t, []control.Event{control.EventQuit}, got)

	select {
	case e, ok := <-r.Events():
		assert.False(t, ok, "channel should be closed, got event %v", e)
	case <-time.After(time.Second):
		t.Fatal("events channel not closed after quit")
	}
}

func TestReaderClosesChannelOnEOF(t *testing.T) {
	r := NewReader(WithInput(strings.NewReader("+")))
	require.NoError(t, r.Start())
	defer r.Close()

	got := collectEvents(t, r, 1)
	require.Equal(t, []control.Event{control.EventPitchUp}, got)

	select {
	case _, ok := <-r.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel not closed after EOF")
	}
}
