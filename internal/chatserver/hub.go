package chatserver

import (
	"sync"

	"github.com/codefionn/linechat/internal/logger"
)

// Hub maintains the set of active sessions and fans lines out to them
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[*Session]struct{}),
	}
}

// Register adds a session to the hub
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions[s] = struct{}{}
	logger.Debug("Session %s registered (total: %d)", s.ID, len(h.sessions))
}

// Unregister removes a session. Removing an absent session is a no-op.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; ok {
		delete(h.sessions, s)
		logger.Debug("Session %s unregistered (total: %d)", s.ID, len(h.sessions))
	}
}

// Contains reports whether s is registered
func (h *Hub) Contains(s *Session) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.sessions[s]
	return ok
}

// Count returns the number of registered sessions
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.sessions)
}

// Snapshot returns the registered sessions at this instant
func (h *Hub) Snapshot() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Broadcast queues line for every session registered at call time except
// exclude, and returns how many accepted it. Delivery happens outside the
// lock, so a recipient that fails (and unregisters itself) cannot stall or
// fail delivery to the others.
func (h *Hub) Broadcast(line string, exclude *Session) int {
	delivered := 0
	for _, s := range h.Snapshot() {
		if s == exclude {
			continue
		}
		if s.Send(line) {
			delivered++
		}
	}
	return delivered
}

// Shutdown closes every registered session
func (h *Hub) Shutdown() {
	sessions := h.Snapshot()
	logger.Info("Shutting down hub, closing %d sessions", len(sessions))
	for _, s := range sessions {
		s.Close()
	}
}
