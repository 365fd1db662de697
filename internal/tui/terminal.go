package tui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/muesli/cancelreader"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/codefionn/linechat/internal/logger"
)

// Fallback geometry when the terminal size cannot be queried
const (
	defaultWidth  = 80
	defaultHeight = 24
)

// Driver is the terminal the chat view runs on
type Driver interface {
	// Input delivers raw keystroke bytes
	Input() io.Reader
	// Output carries screen primitives and rendered rows
	Output() *termenv.Output
	// Size is sampled once when the driver opens; resizes are not tracked
	Size() (width, height int)
	// CancelInput unblocks a pending Input read
	CancelInput()
}

// Terminal is a Driver on a real TTY in raw mode
type Terminal struct {
	fd       int
	oldState *term.State
	input    cancelreader.CancelReader
	output   *termenv.Output
	width    int
	height   int

	restoreOnce sync.Once
}

// OpenTerminal switches in to raw mode and clears the screen. Call Restore
// before exiting.
func OpenTerminal(in, out *os.File) (*Terminal, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%s is not a terminal", in.Name())
	}

	width, height, err := term.GetSize(int(out.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		logger.Debug("Terminal size unavailable (%v), using %dx%d", err, defaultWidth, defaultHeight)
		width, height = defaultWidth, defaultHeight
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}

	input, err := cancelreader.NewReader(in)
	if err != nil {
		term.Restore(fd, oldState)
		return nil, fmt.Errorf("failed to open terminal input: %w", err)
	}

	output := termenv.NewOutput(out)
	output.ClearScreen()

	return &Terminal{
		fd:       fd,
		oldState: oldState,
		input:    input,
		output:   output,
		width:    width,
		height:   height,
	}, nil
}

func (t *Terminal) Input() io.Reader { return t.input }
func (t *Terminal) Output() *termenv.Output { return t.output }
func (t *Terminal) Size() (width, height int) { return t.width, t.height }

// CancelInput makes a blocked Input read return cancelreader.ErrCanceled
func (t *Terminal) CancelInput() {
	t.input.Cancel()
}

// Restore leaves raw mode and parks the cursor below the chat view
func (t *Terminal) Restore() error {
	var err error
	t.restoreOnce.Do(func() {
		t.input.Cancel()
		t.input.Close()
		t.output.MoveCursor(t.height, 1)
		t.output.WriteString("\r\n")
		err = term.Restore(t.fd, t.oldState)
	})
	return err
}
