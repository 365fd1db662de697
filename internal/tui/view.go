package tui

import (
	"sync"

	"github.com/muesli/termenv"

	"github.com/codefionn/linechat/internal/consts"
)

// View is the chat screen: scrollback, input decoder and renderer. The
// network flow calls AddLine and the input flow calls NextEvent; one mutex
// serializes scrollback changes and drawing between them.
type View struct {
	mu         sync.Mutex
	out        *termenv.Output
	decoder    *InputDecoder
	scrollback *Scrollback
	renderer   *Renderer
}

// NewView builds a view with d's geometry as sampled now
func NewView(d Driver) *View {
	width, height := d.Size()
	renderer := NewRenderer(d.Output(), width, height)

	scrollback := NewScrollback(consts.ScrollbackCapacity)
	scrollback.SetVisibleRows(renderer.VisibleRows())

	return &View{
		out:        d.Output(),
		decoder:    NewInputDecoder(d.Input()),
		scrollback: scrollback,
		renderer:   renderer,
	}
}

// NextEvent blocks for a keystroke, applies it and redraws. Submit and EOF
// events are left to the caller.
func (v *View) NextEvent() (Event, error) {
	ev, err := v.decoder.Next()
	if err != nil || ev.Kind == EventEOF || ev.Kind == EventIgnored {
		return ev, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	switch ev.Kind {
	case EventScrollUp:
		v.scrollback.ScrollUp()
	case EventScrollDown:
		v.scrollback.ScrollDown()
	}
	v.redrawLocked()
	return ev, nil
}

// AddLine appends a received line, jumps to the bottom and redraws
func (v *View) AddLine(line string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.scrollback.Append(line)
	v.redrawLocked()
}

// Redraw repaints the whole screen
func (v *View) Redraw() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.redrawLocked()
}

// Frame returns the rows the next redraw would paint
func (v *View) Frame() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frameLocked()
}

// ScrollOffset returns how many lines are hidden below the viewport
func (v *View) ScrollOffset() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.scrollback.Offset()
}

func (v *View) frameLocked() []string {
	return v.renderer.Frame(v.scrollback.Window(), v.scrollback.Offset(), v.decoder.Composing())
}

func (v *View) redrawLocked() {
	v.renderer.Draw(v.out, v.frameLocked())
}
