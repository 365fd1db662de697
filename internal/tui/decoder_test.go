package tui

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeAll runs the decoder until EOF and returns every event before it
func decodeAll(t *testing.T, d *InputDecoder) []Event {
	t.Helper()
	var events []Event
	for i := 0; i < 1000; i++ {
		ev, err := d.Next()
		require.NoError(t, err)
		if ev.Kind == EventEOF {
			return events
		}
		events = append(events, ev)
	}
	t.Fatal("decoder never reached EOF")
	return nil
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestDecoderSubmitsTypedLine(t *testing.T) {
	d := NewInputDecoder(strings.NewReader("hello\r"))
	events := decodeAll(t, d)

	require.Len(t, events, 6)
	for i, c := range []byte("hello") {
		assert.Equal(t, Event{Kind: EventAppendChar, Char: c}, events[i])
	}
	assert.Equal(t, Event{Kind: EventSubmit, Line: "hello"}, events[5])
	assert.Empty(t, d.Composing())
}

func TestDecoderArrowKeys(t *testing.T) {
	d := NewInputDecoder(strings.NewReader("\x1b[A"))
	events := decodeAll(t, d)
	assert.Equal(t, []EventKind{EventScrollUp}, kinds(events))
	assert.Empty(t, d.Composing())

	d = NewInputDecoder(strings.NewReader("ab\x1b[B\x1b[A"))
	events = decodeAll(t, d)
	assert.Equal(t, []EventKind{EventAppendChar, EventAppendChar, EventScrollDown, EventScrollUp}, kinds(events))
	assert.Equal(t, "ab", d.Composing(), "scrolling keeps the composing buffer")
}

func TestDecoderEscapeSplitAcrossReads(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		for _, chunk := range []string{"x", "\x1b", "[", "A", "\x1b[", "3", "~", "y"} {
			pw.Write([]byte(chunk))
			time.Sleep(10 * time.Millisecond)
		}
		pw.Close()
	}()

	d := NewInputDecoder(pr)
	events := decodeAll(t, d)

	assert.Equal(t, []EventKind{EventAppendChar, EventScrollUp, EventClearComposing, EventAppendChar}, kinds(events))
	assert.Equal(t, "y", d.Composing())
}

func TestDecoderEscapeFallbacks(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      []EventKind
		composing string
	}{
		{
			name:      "lone escape then key",
			input:     "ab\x1bc",
			want:      []EventKind{EventAppendChar, EventAppendChar, EventClearComposing, EventAppendChar},
			composing: "c",
		},
		{
			name:      "escape at end of input",
			input:     "ab\x1b",
			want:      []EventKind{EventAppendChar, EventAppendChar, EventClearComposing},
			composing: "",
		},
		{
			name:      "escape bracket at end of input",
			input:     "ab\x1b[",
			want:      []EventKind{EventAppendChar, EventAppendChar, EventClearComposing},
			composing: "",
		},
		{
			name:      "unknown sequence is consumed",
			input:     "ab\x1b[Cx",
			want:      []EventKind{EventAppendChar, EventAppendChar, EventClearComposing, EventAppendChar},
			composing: "x",
		},
		{
			name:      "right arrow and delete type nothing",
			input:     "hi\x1b[C\x1b[3~",
			want:      []EventKind{EventAppendChar, EventAppendChar, EventClearComposing, EventClearComposing},
			composing: "",
		},
		{
			name:      "parameterised arrow",
			input:     "ab\x1b[1;5Ac",
			want:      []EventKind{EventAppendChar, EventAppendChar, EventClearComposing, EventAppendChar},
			composing: "c",
		},
		{
			name:      "sequence cut short by end of input",
			input:     "ab\x1b[12",
			want:      []EventKind{EventAppendChar, EventAppendChar, EventClearComposing},
			composing: "",
		},
		{
			name:      "double escape",
			input:     "ab\x1b\x1b[A",
			want:      []EventKind{EventAppendChar, EventAppendChar, EventClearComposing, EventScrollUp},
			composing: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewInputDecoder(strings.NewReader(tt.input))
			assert.Equal(t, tt.want, kinds(decodeAll(t, d)))
			assert.Equal(t, tt.composing, d.Composing())
			assert.Equal(t, stateNone, d.state)
		})
	}
}

func TestDecoderBackspace(t *testing.T) {
	d := NewInputDecoder(strings.NewReader("\x7fabc\x7f\x08d\r"))
	events := decodeAll(t, d)

	assert.Equal(t, EventBackspace, events[0].Kind, "backspace on empty input is harmless")
	assert.Equal(t, Event{Kind: EventSubmit, Line: "ad"}, events[len(events)-1])
}

func TestDecoderSubmitTrimsAndClears(t *testing.T) {
	d := NewInputDecoder(strings.NewReader("  hi there  \r\n   \r"))
	var submits []string
	for _, ev := range decodeAll(t, d) {
		if ev.Kind == EventSubmit {
			submits = append(submits, ev.Line)
		}
	}

	assert.Equal(t, []string{"hi there", "", ""}, submits)
	assert.Empty(t, d.Composing())
}

func TestDecoderIgnoresControlBytes(t *testing.T) {
	d := NewInputDecoder(strings.NewReader("\x01\t\x80a"))
	events := decodeAll(t, d)

	assert.Equal(t, []EventKind{EventIgnored, EventIgnored, EventIgnored, EventAppendChar}, kinds(events))
	assert.Equal(t, "a", d.Composing())
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestDecoderReadError(t *testing.T) {
	boom := errors.New("boom")
	d := NewInputDecoder(failingReader{err: boom})

	ev, err := d.Next()
	assert.Equal(t, EventEOF, ev.Kind)
	assert.ErrorIs(t, err, boom)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "scroll_up", EventScrollUp.String())
	assert.Equal(t, "submit", EventSubmit.String())
	assert.Equal(t, "unknown", EventKind(99).String())
}
