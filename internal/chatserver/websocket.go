package chatserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/codefionn/linechat/internal/consts"
	"github.com/codefionn/linechat/internal/logger"
)

// wsConn carries the line protocol over WebSocket text frames. Each frame
// written is one line; a frame read may hold several newline-separated
// lines, which are returned one at a time. Binary frames are ignored.
type wsConn struct {
	conn *websocket.Conn
	// lines left over from the last frame, read by one goroutine only
	pending []string
}

// NewWebSocketTransport wraps an upgraded connection.
func NewWebSocketTransport(conn *websocket.Conn, maxLine int) Transport {
	if maxLine > 0 {
		conn.SetReadLimit(int64(maxLine))
	}
	return &wsConn{conn: conn}
}

func (c *wsConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.pending = splitFrame(string(data))
	}

	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

// splitFrame breaks a frame into lines the way the TCP framing would: a
// trailing newline terminates the last line and "\r" before "\n" is dropped.
func splitFrame(frame string) []string {
	frame = strings.TrimSuffix(frame, "\n")
	lines := strings.Split(frame, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func (c *wsConn) WriteLine(line string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *wsConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// websocketHandler upgrades requests and runs the chat protocol on the
// handler goroutine until the session closes.
func (s *Server) websocketHandler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  consts.BufferSize4KB,
		WriteBufferSize: consts.BufferSize4KB,
		// Browsers on other origins may join; there is no authentication to protect.
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc(consts.WebSocketPath, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			logger.Warn("WebSocket upgrade from %s failed: %v", r.RemoteAddr, err)
			return
		}
		s.serveTransport(NewWebSocketTransport(conn, s.cfg.MaxLineBytes))
	})
	return mux
}
