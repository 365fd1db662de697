package chatclient

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muesli/cancelreader"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/linechat/internal/chatserver"
	"github.com/codefionn/linechat/internal/config"
	"github.com/codefionn/linechat/internal/consts"
)

// pipeDriver feeds keystrokes through a pipe so tests control their timing
type pipeDriver struct {
	keys     *io.PipeReader
	typist   *io.PipeWriter
	buf      bytes.Buffer
	output   *termenv.Output
	canceled atomic.Bool
}

func newPipeDriver() *pipeDriver {
	pr, pw := io.Pipe()
	d := &pipeDriver{keys: pr, typist: pw}
	d.output = termenv.NewOutput(&d.buf, termenv.WithProfile(termenv.Ascii))
	return d
}

func (d *pipeDriver) Input() io.Reader { return d.keys }
func (d *pipeDriver) Output() *termenv.Output { return d.output }
func (d *pipeDriver) Size() (width, height int) { return 60, 8 }

func (d *pipeDriver) CancelInput() {
	d.canceled.Store(true)
	d.keys.CloseWithError(cancelreader.ErrCanceled)
}

// typeKeys runs on its own goroutine; a write cut short by shutdown is fine
func (d *pipeDriver) typeKeys(keys string) {
	io.WriteString(d.typist, keys)
}

type runResult struct {
	err error
}

// startClient runs a client over net.Pipe and returns the router side
func startClient(t *testing.T, driver *pipeDriver) (*Client, net.Conn, *bufio.Reader, <-chan runResult) {
	t.Helper()
	clientSide, routerSide := net.Pipe()
	t.Cleanup(func() { routerSide.Close() })

	c := New(clientSide, driver)
	done := make(chan runResult, 1)
	go func() { done <- runResult{err: c.Run(context.Background())} }()
	return c, routerSide, bufio.NewReader(routerSide), done
}

func readUpstream(t *testing.T, conn net.Conn, r *bufio.Reader) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

func waitDone(t *testing.T, done <-chan runResult) error {
	t.Helper()
	select {
	case res := <-done:
		return res.err
	case <-time.After(5 * time.Second):
		t.Fatal("client did not shut down")
		return nil
	}
}

func frameContains(c *Client, text string) func() bool {
	return func() bool {
		for _, row := range c.View().Frame() {
			if strings.Contains(row, text) {
				return true
			}
		}
		return false
	}
}

func TestClientShowsInboundAndSendsInput(t *testing.T) {
	driver := newPipeDriver()
	c, router, upstream, done := startClient(t, driver)

	_, err := io.WriteString(router, "Please enter a nickname: \n")
	require.NoError(t, err)
	require.Eventually(t, frameContains(c, "Please enter a nickname:"), 5*time.Second, 5*time.Millisecond)

	go driver.typeKeys("alice\r")
	assert.Equal(t, "alice", readUpstream(t, router, upstream))

	go driver.typeKeys("  /quit  \r")
	assert.Equal(t, "/quit", readUpstream(t, router, upstream))

	assert.NoError(t, waitDone(t, done))
	assert.True(t, driver.canceled.Load())
	assert.Equal(t, StateClosed, c.State())
}

func TestClientSkipsEmptyLines(t *testing.T) {
	driver := newPipeDriver()
	_, router, upstream, done := startClient(t, driver)

	go driver.typeKeys("\r   \r\x1b[Ahi\r")
	assert.Equal(t, "hi", readUpstream(t, router, upstream))

	go driver.typeKeys("/nick\r")
	assert.Equal(t, "/nick ", readUpstream(t, router, upstream))

	driver.typist.Close()
	assert.NoError(t, waitDone(t, done))
}

func TestClientNoLocalEcho(t *testing.T) {
	driver := newPipeDriver()
	c, router, upstream, done := startClient(t, driver)

	go driver.typeKeys("secret\r")
	assert.Equal(t, "secret", readUpstream(t, router, upstream))
	assert.False(t, frameContains(c, "secret")())

	driver.typist.Close()
	assert.NoError(t, waitDone(t, done))
}

func TestClientStopsWhenRouterCloses(t *testing.T) {
	driver := newPipeDriver()
	_, router, _, done := startClient(t, driver)

	require.NoError(t, router.Close())

	assert.NoError(t, waitDone(t, done))
	assert.True(t, driver.canceled.Load(), "input flow must be unblocked")
}

func TestClientStopsOnContextCancel(t *testing.T) {
	driver := newPipeDriver()
	clientSide, routerSide := net.Pipe()
	defer routerSide.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(clientSide, driver)
	done := make(chan runResult, 1)
	go func() { done <- runResult{err: c.Run(ctx)} }()

	cancel()
	assert.NoError(t, waitDone(t, done))
}

// faultyConn fails every read with a reset
type faultyConn struct {
	net.Conn
}

func (c faultyConn) Read([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestClientReportsTransportFault(t *testing.T) {
	driver := newPipeDriver()
	clientSide, routerSide := net.Pipe()
	defer routerSide.Close()

	c := New(faultyConn{Conn: clientSide}, driver)
	err := c.Run(context.Background())

	require.Error(t, err)
	assert.True(t, IsTransportFault(err))
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		limit int
		want  []string
	}{
		{"plain lines", "one\ntwo\r\n", 64, []string{"one", "two"}},
		{"unterminated tail", "one\ntail", 64, []string{"one", "tail"}},
		{"long line truncated", "abcdefghij\nnext\n", 4, []string{"abcd", "next"}},
		{"longer than reader buffer", strings.Repeat("x", 100) + "\nok\n", 40, []string{strings.Repeat("x", 40), "ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := bufio.NewReaderSize(strings.NewReader(tt.input), 16)
			var got []string
			for {
				line, err := readLine(r, tt.limit)
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				got = append(got, line)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientSurvivesOversizedRelay(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Addr = "127.0.0.1:0"
	srv := chatserver.NewServer(&cfg.Server)
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Stop()

	cfg.Client.ServerAddr = srv.Addr().String()
	conn, err := Dial(context.Background(), &cfg.Client, io.Discard)
	require.NoError(t, err)

	driver := newPipeDriver()
	bob := New(conn, driver)
	done := make(chan runResult, 1)
	go func() { done <- runResult{err: bob.Run(context.Background())} }()

	go driver.typeKeys("bob\r")
	require.Eventually(t, func() bool { return srv.Hub().Count() == 1 }, 5*time.Second, 5*time.Millisecond)

	eve, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer eve.Close()
	_, err = io.WriteString(eve, "eve\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Hub().Count() == 2 }, 5*time.Second, 5*time.Millisecond)

	// accepted by the router, but the label pushes the relay past its limit
	huge := strings.Repeat("x", consts.DefaultMaxLineBytes-6)
	_, err = io.WriteString(eve, huge+"\nhello\n")
	require.NoError(t, err)

	require.Eventually(t, frameContains(bob, ": hello"), 5*time.Second, 5*time.Millisecond)
	select {
	case res := <-done:
		t.Fatalf("client stopped early: %v", res.err)
	default:
	}
	assert.Equal(t, StateConnected, bob.State())

	go driver.typeKeys("/quit\r")
	assert.NoError(t, waitDone(t, done))
}

func TestDial(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.DefaultConfig().Client
	cfg.ServerAddr = ln.Addr().String()

	var status bytes.Buffer
	conn, err := Dial(context.Background(), &cfg, &status)
	require.NoError(t, err)
	conn.Close()

	assert.Equal(t, "Connecting to server...\nConnected!\n", status.String())
}

func TestDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	cfg := config.DefaultConfig().Client
	cfg.ServerAddr = addr

	var status bytes.Buffer
	_, err = Dial(context.Background(), &cfg, &status)
	require.Error(t, err)
	assert.True(t, IsTransportFault(err))
	assert.NotContains(t, status.String(), "Connected!")
}
