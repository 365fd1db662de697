package chatserver

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/codefionn/linechat/internal/consts"
)

// Transport is one bidirectional line stream. ReadLine is only called from the
// session's reader goroutine and WriteLine only from its writer goroutine.
type Transport interface {
	// ReadLine returns the next line without its terminator, or io.EOF once the
	// peer has closed the stream.
	ReadLine() (string, error)
	WriteLine(line string) error
	SetWriteDeadline(t time.Time) error
	Close() error
	RemoteAddr() string
}

// lineConn frames a net.Conn with '\n'. A trailing '\r' is dropped.
type lineConn struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

// NewLineTransport wraps conn. Lines longer than maxLine bytes fail the read.
func NewLineTransport(conn net.Conn, maxLine int) Transport {
	if maxLine <= 0 {
		maxLine = consts.DefaultMaxLineBytes
	}
	// Scanner's limit is the larger of maxLine and the initial capacity.
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, min(consts.BufferSize4KB, maxLine)), maxLine)
	return &lineConn{conn: conn, scanner: scanner}
}

func (c *lineConn) ReadLine() (string, error) {
	if c.scanner.Scan() {
		return c.scanner.Text(), nil
	}
	if err := c.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (c *lineConn) WriteLine(line string) error {
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

func (c *lineConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *lineConn) Close() error {
	return c.conn.Close()
}

func (c *lineConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
