// Package chatclient connects a terminal chat view to a linechat router.
//
// Two goroutines share the View: one reads lines from the router and adds
// them to the scrollback, the other decodes keystrokes and sends submitted
// lines upstream. Whichever finishes first shuts the other down by closing
// the connection and cancelling terminal input.
package chatclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/muesli/cancelreader"

	"github.com/codefionn/linechat/internal/config"
	"github.com/codefionn/linechat/internal/consts"
	"github.com/codefionn/linechat/internal/logger"
	"github.com/codefionn/linechat/internal/tui"
)

// ConnectionState represents the current state of the client
type ConnectionState int32

const (
	// StateConnected means both flows are running
	StateConnected ConnectionState = iota
	// StateClosing means shutdown has begun
	StateClosing
	// StateClosed means Run has returned
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	commandQuit = "/quit"
	commandNick = "/nick"
)

// Dial connects to the router, reporting progress on status. Only the
// connect is bounded by a timeout.
func Dial(ctx context.Context, cfg *config.ClientConfig, status io.Writer) (net.Conn, error) {
	fmt.Fprintln(status, "Connecting to server...")

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout()}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.ServerAddr)
	if err != nil {
		return nil, &TransportError{Op: "connect " + cfg.ServerAddr, Err: err}
	}

	fmt.Fprintln(status, "Connected!")
	logger.Info("Connected to %s", conn.RemoteAddr())
	return conn, nil
}

// Client runs the chat view against one router connection
type Client struct {
	conn   net.Conn
	driver tui.Driver
	view   *tui.View

	state     atomic.Int32
	closeOnce sync.Once
}

// New creates a client over an established connection
func New(conn net.Conn, driver tui.Driver) *Client {
	return &Client{
		conn:   conn,
		driver: driver,
		view:   tui.NewView(driver),
	}
}

// View returns the chat view
func (c *Client) View() *tui.View {
	return c.view
}

// State returns the client state
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Run blocks until /quit, end of terminal input, the router closing the
// connection or ctx being cancelled, all of which return nil. A transport
// fault returns a *TransportError.
func (c *Client) Run(ctx context.Context) error {
	defer c.state.Store(int32(StateClosed))

	c.view.Redraw()
	stop := context.AfterFunc(ctx, c.shutdown)
	defer stop()

	errs := make(chan error, 2)
	go func() { errs <- c.readLoop() }()
	go func() { errs <- c.inputLoop() }()

	first := <-errs
	c.shutdown()
	second := <-errs

	if first != nil {
		return first
	}
	return second
}

// readLoop adds each router line to the view until the stream ends
func (c *Client) readLoop() error {
	reader := bufio.NewReaderSize(c.conn, consts.BufferSize4KB)

	for {
		line, err := readLine(reader, consts.MaxDisplayLineBytes)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("Server closed the connection")
				return nil
			}
			if c.closing() {
				return nil
			}
			return &TransportError{Op: "read", Err: err}
		}
		c.view.AddLine(line)
	}
}

// readLine returns the next line without its terminator. Bytes past limit
// are dropped, so an oversized relay is shown truncated instead of ending
// the session. A final unterminated line is returned before io.EOF.
func readLine(r *bufio.Reader, limit int) (string, error) {
	var line []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if room := limit - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}

		switch {
		case err == nil:
			return strings.TrimRight(string(line), "\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(line) > 0:
			return strings.TrimRight(string(line), "\r\n"), nil
		default:
			return "", err
		}
	}
}

// inputLoop sends submitted lines upstream until /quit or end of input
func (c *Client) inputLoop() error {
	for {
		ev, err := c.view.NextEvent()
		if err != nil {
			if c.closing() || errors.Is(err, cancelreader.ErrCanceled) {
				return nil
			}
			return fmt.Errorf("terminal input: %w", err)
		}

		switch ev.Kind {
		case tui.EventEOF:
			logger.Debug("Terminal input closed")
			return nil
		case tui.EventSubmit:
			if ev.Line == "" {
				continue
			}
			if err := c.send(outboundLine(ev.Line)); err != nil {
				if c.closing() {
					return nil
				}
				return err
			}
			if ev.Line == commandQuit {
				return nil
			}
		}
	}
}

// outboundLine restores the separator of a bare "/nick" that trimming
// removed, so the router answers with its usage message.
func outboundLine(line string) string {
	if line == commandNick {
		return commandNick + " "
	}
	return line
}

func (c *Client) send(line string) error {
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (c *Client) closing() bool {
	return c.State() != StateConnected
}

// shutdown unblocks both flows. Safe to call more than once.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.state.CompareAndSwap(int32(StateConnected), int32(StateClosing))
		if err := c.conn.Close(); err != nil {
			logger.Debug("Closing connection: %v", err)
		}
		c.driver.CancelInput()
	})
}
