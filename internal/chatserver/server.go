package chatserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/codefionn/linechat/internal/config"
	"github.com/codefionn/linechat/internal/logger"
)

// Server accepts connections and runs one session per connection
type Server struct {
	cfg     *config.ServerConfig
	hub     *Hub
	palette Palette

	listener   net.Listener
	wsListener net.Listener
	httpServer *http.Server

	// Connection tracking, from accept until the session goroutine returns
	connMu   sync.Mutex
	sessions map[*Session]struct{}
	wg       sync.WaitGroup

	// Control
	mu       sync.Mutex
	running  bool
	stopping atomic.Bool
	stopOnce sync.Once
	done     chan struct{}

	errMu sync.Mutex
	err   error
}

// Option customizes a Server
type Option func(*Server)

// WithPalette replaces the colors assigned to new sessions
func WithPalette(p Palette) Option {
	return func(s *Server) {
		s.palette = p
	}
}

// NewServer creates a chat server. Nothing listens until Start.
func NewServer(cfg *config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		hub:      NewHub(),
		palette:  DefaultPalette(),
		sessions: make(map[*Session]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listeners and begins accepting. It returns once listening;
// the server stops when ctx is cancelled, Stop is called, or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.setRunning(false)
		return wrapError(ErrorListener, "listen on "+s.cfg.Addr, err)
	}
	s.listener = listener

	if s.cfg.WebSocketAddr != "" {
		wsListener, err := net.Listen("tcp", s.cfg.WebSocketAddr)
		if err != nil {
			listener.Close()
			s.setRunning(false)
			return wrapError(ErrorListener, "listen on "+s.cfg.WebSocketAddr, err)
		}
		s.wsListener = wsListener
		s.httpServer = &http.Server{
			Handler:  s.websocketHandler(),
			ErrorLog: logger.StdLogger(logger.Global(), slog.LevelWarn),
		}
		go s.serveWebSocket()
		logger.Info("WebSocket transport listening on %s", wsListener.Addr())
	}

	go s.acceptLoop()

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.done:
		}
	}()

	logger.Info("Chat server started on %s", listener.Addr())
	return nil
}

// acceptLoop accepts incoming connections until the listener closes
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping.Load() || errors.Is(err, net.ErrClosed) {
				logger.Debug("Listener closed, exiting accept loop")
				return
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			s.fail(wrapError(ErrorListener, "accept", err))
			return
		}

		go s.serveTransport(NewLineTransport(conn, s.cfg.MaxLineBytes))
	}
}

func (s *Server) serveWebSocket() {
	err := s.httpServer.Serve(s.wsListener)
	if err == nil || errors.Is(err, http.ErrServerClosed) || s.stopping.Load() {
		return
	}
	s.fail(wrapError(ErrorListener, "websocket serve", err))
}

// serveTransport runs a session on t and returns once it has closed
func (s *Server) serveTransport(t Transport) {
	sess := newSession(uuid.NewString(), t, s.palette.Pick(), s.hub, s.cfg.SendQueueSize, s.cfg.WriteTimeout())
	if !s.track(sess) {
		t.Close()
		return
	}
	defer s.untrack(sess)

	logger.Debug("New connection %s from %s", sess.ID, t.RemoteAddr())
	sess.start()
	newProtocol(sess, s.hub, s.newLimiter()).run()
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.cfg.RateLimit <= 0 {
		return nil
	}
	burst := s.cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)
}

// track adds a session to tracking. It fails once shutdown has begun, so
// every wg.Add happens before Stop waits.
func (s *Server) track(sess *Session) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.stopping.Load() {
		return false
	}
	s.sessions[sess] = struct{}{}
	s.wg.Add(1)
	return true
}

// untrack removes a session from tracking
func (s *Server) untrack(sess *Session) {
	s.connMu.Lock()
	delete(s.sessions, sess)
	s.connMu.Unlock()
	s.wg.Done()
}

// fail records a fatal listener error and shuts the server down
func (s *Server) fail(err error) {
	logger.Error("Chat server listener failed: %v", err)

	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()

	go s.Stop()
}

// Stop closes the listeners and every session, then waits for the session
// goroutines to return. It returns the listener fault that caused shutdown,
// if any.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		logger.Info("Stopping chat server...")

		s.connMu.Lock()
		s.stopping.Store(true)
		sessions := make([]*Session, 0, len(s.sessions))
		for sess := range s.sessions {
			sessions = append(sessions, sess)
		}
		s.connMu.Unlock()

		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				logger.Warn("Error closing listener: %v", err)
			}
		}
		if s.httpServer != nil {
			// Close also closes wsListener. Hijacked WebSocket conns are
			// closed through their sessions below.
			if err := s.httpServer.Close(); err != nil {
				logger.Warn("Error closing WebSocket server: %v", err)
			}
		}

		for _, sess := range sessions {
			sess.Close()
		}
		s.wg.Wait()

		s.setRunning(false)
		close(s.done)
		logger.Info("Chat server stopped")
	})

	return s.Err()
}

// Done is closed once Stop has finished
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Err returns the listener fault that stopped the server, or nil
func (s *Server) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Addr returns the TCP listen address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// WebSocketAddr returns the WebSocket listen address, or nil when disabled
func (s *Server) WebSocketAddr() net.Addr {
	if s.wsListener == nil {
		return nil
	}
	return s.wsListener.Addr()
}

// ConnectionCount returns the number of open connections, including those
// still negotiating a nickname
func (s *Server) ConnectionCount() int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return len(s.sessions)
}

// Hub returns the registry of active sessions
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) setRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
