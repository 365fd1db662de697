package tui

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync"
)

// EventKind identifies what a keystroke did to the input state
type EventKind int

const (
	EventIgnored EventKind = iota
	EventAppendChar
	EventBackspace
	EventClearComposing
	EventScrollUp
	EventScrollDown
	EventSubmit
	EventEOF
)

// String returns the string representation of an EventKind
func (k EventKind) String() string {
	switch k {
	case EventIgnored:
		return "ignored"
	case EventAppendChar:
		return "append_char"
	case EventBackspace:
		return "backspace"
	case EventClearComposing:
		return "clear_composing"
	case EventScrollUp:
		return "scroll_up"
	case EventScrollDown:
		return "scroll_down"
	case EventSubmit:
		return "submit"
	case EventEOF:
		return "eof"
	default:
		return "unknown"
	}
}

// Event is the result of decoding one keystroke
type Event struct {
	Kind EventKind
	// Char is set for EventAppendChar
	Char byte
	// Line is the trimmed composing buffer for EventSubmit
	Line string
}

const (
	keyBackspace = 8
	keyLF        = 10
	keyCR        = 13
	keyEscape    = 27
	keyDelete    = 127
)

type escapeState int

const (
	stateNone escapeState = iota
	stateSawEscape
	stateSawEscapeBracket
	// stateSequence is inside an ESC [ sequence that has parameter bytes
	stateSequence
)

// InputDecoder turns raw terminal bytes into events and owns the composing
// buffer. Next must be called from a single goroutine; Composing may be
// called from any.
type InputDecoder struct {
	reader *bufio.Reader
	state  escapeState

	mu        sync.Mutex
	composing []byte
}

// NewInputDecoder reads keystrokes from r
func NewInputDecoder(r io.Reader) *InputDecoder {
	return &InputDecoder{reader: bufio.NewReader(r)}
}

// Next blocks for the next keystroke. End of input yields EventEOF with a
// nil error; any other read failure yields EventEOF and the error. An
// escape sequence cut short by either resolves to EventClearComposing first.
func (d *InputDecoder) Next() (Event, error) {
	for {
		if d.state == stateSawEscape {
			if ev, done := d.afterEscape(); done {
				return ev, nil
			}
			continue
		}

		b, err := d.reader.ReadByte()
		if err != nil {
			if d.state != stateNone {
				d.state = stateNone
				return d.clearComposing(), nil
			}
			if errors.Is(err, io.EOF) {
				return Event{Kind: EventEOF}, nil
			}
			return Event{Kind: EventEOF}, err
		}

		switch d.state {
		case stateSawEscapeBracket, stateSequence:
			if ev, done := d.sequence(b); done {
				return ev, nil
			}
		default:
			if b == keyEscape {
				d.state = stateSawEscape
				continue
			}
			return d.key(b), nil
		}
	}
}

func (d *InputDecoder) key(b byte) Event {
	switch {
	case b == keyCR || b == keyLF:
		return Event{Kind: EventSubmit, Line: d.submit()}
	case b == keyBackspace || b == keyDelete:
		d.backspace()
		return Event{Kind: EventBackspace}
	case b >= 32 && b <= 126:
		d.appendChar(b)
		return Event{Kind: EventAppendChar, Char: b}
	default:
		return Event{Kind: EventIgnored}
	}
}

// afterEscape looks at the byte following ESC. Peek blocks until it
// arrives, so a sequence split across reads still decodes; anything but
// '[' stays unread for the next call.
func (d *InputDecoder) afterEscape() (Event, bool) {
	next, err := d.reader.Peek(1)
	if err != nil || next[0] != '[' {
		d.state = stateNone
		return d.clearComposing(), true
	}
	d.reader.Discard(1)
	d.state = stateSawEscapeBracket
	return Event{}, false
}

// sequence consumes one byte of an ESC [ sequence. Parameter and
// intermediate bytes (0x20-0x3F) extend it; any other byte ends it.
func (d *InputDecoder) sequence(b byte) (Event, bool) {
	bare := d.state == stateSawEscapeBracket
	switch {
	case b >= 0x20 && b <= 0x3f:
		d.state = stateSequence
		return Event{}, false
	case bare && b == 'A':
		d.state = stateNone
		return Event{Kind: EventScrollUp}, true
	case bare && b == 'B':
		d.state = stateNone
		return Event{Kind: EventScrollDown}, true
	default:
		d.state = stateNone
		return d.clearComposing(), true
	}
}

func (d *InputDecoder) clearComposing() Event {
	d.clear()
	return Event{Kind: EventClearComposing}
}

// Composing returns the text typed so far
func (d *InputDecoder) Composing() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.composing)
}

func (d *InputDecoder) appendChar(b byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.composing = append(d.composing, b)
}

func (d *InputDecoder) backspace() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.composing) > 0 {
		d.composing = d.composing[:len(d.composing)-1]
	}
}

func (d *InputDecoder) clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.composing = d.composing[:0]
}

func (d *InputDecoder) submit() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	line := strings.TrimSpace(string(d.composing))
	d.composing = d.composing[:0]
	return line
}
