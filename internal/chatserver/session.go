package chatserver

import (
	"sync"
	"time"

	"github.com/codefionn/linechat/internal/logger"
)

// State is a session's position in the protocol state machine.
type State int

const (
	// StateAwaitingNickname is the initial state; the peer has been prompted.
	StateAwaitingNickname State = iota
	// StateActive means the session is registered and chatting.
	StateActive
	// StateClosed is terminal.
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateAwaitingNickname:
		return "awaiting_nickname"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one connected participant. Its protocol goroutine reads from the
// transport; writePump is the only writer.
type Session struct {
	// ID identifies the session in logs
	ID string

	log          *logger.Logger
	transport    Transport
	color        Color
	hub          *Hub
	writeTimeout time.Duration

	mu       sync.Mutex
	nickname string
	state    State
	send     chan string

	closeOnce  sync.Once
	writerDone chan struct{}
}

func newSession(id string, transport Transport, color Color, hub *Hub, queueSize int, writeTimeout time.Duration) *Session {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Session{
		ID:           id,
		log:          logger.Global().WithPrefix("session " + id),
		transport:    transport,
		color:        color,
		hub:          hub,
		writeTimeout: writeTimeout,
		state:        StateAwaitingNickname,
		send:         make(chan string, queueSize),
		writerDone:   make(chan struct{}),
	}
}

// start launches the writer goroutine.
func (s *Session) start() {
	go s.writePump()
}

// Nickname returns the current nickname, empty until negotiated.
func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

func (s *Session) setNickname(nick string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nickname = nick
}

// Label is the colorized nickname used to prefix lines from this session.
func (s *Session) Label() string {
	return s.color.Paint(s.Nickname())
}

// State returns the protocol state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// activate moves AwaitingNickname to Active. It fails if the session was
// closed in the meantime.
func (s *Session) activate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingNickname {
		return false
	}
	s.state = StateActive
	return true
}

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string {
	return s.transport.RemoteAddr()
}

// Send queues line for delivery without blocking. A full queue means the peer
// is not keeping up; the session is closed and Send reports false.
func (s *Session) Send(line string) bool {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return false
	}
	select {
	case s.send <- line:
		s.mu.Unlock()
		return true
	default:
	}
	s.mu.Unlock()

	s.log.Warn("Send queue full, closing connection")
	s.Close()
	return false
}

// Close moves the session to Closed: it leaves the hub and releases the
// transport, which unblocks the protocol goroutine's read. Safe to call from
// any goroutine, any number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		close(s.send)
		s.mu.Unlock()

		if s.hub != nil {
			s.hub.Unregister(s)
		}
		if err := s.transport.Close(); err != nil {
			s.log.Debug("Transport close: %v", err)
		}
	})
}

// writePump drains the send queue onto the transport. A failed or timed-out
// write closes this session only.
func (s *Session) writePump() {
	defer close(s.writerDone)

	for line := range s.send {
		if s.writeTimeout > 0 {
			if err := s.transport.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
				s.writeFailed(err)
				return
			}
		}
		if err := s.transport.WriteLine(line); err != nil {
			s.writeFailed(err)
			return
		}
	}
}

func (s *Session) writeFailed(err error) {
	if s.State() != StateClosed {
		s.log.Warn("Write failed: %v", wrapError(ErrorTransport, "write", err))
	}
	s.Close()
}
