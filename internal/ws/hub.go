package ws

import "sync"

// Hub tracks every open session, identified or not, so they can be counted
// and closed together on shutdown.
type Hub struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{sessions: make(map[string]*Session)}
}

// Add registers an open session.
func (h *Hub) Add(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID()] = s
}

// Remove forgets a session.
func (h *Hub) Remove(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.ID())
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// CloseAll closes every open session with reason and waits for their close
// hooks to finish.
func (h *Hub) CloseAll(reason string) {
	h.mu.RLock()
	open := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		open = append(open, s)
	}
	h.mu.RUnlock()

	for _, s := range open {
		s.Close(reason)
	}
	for _, s := range open {
		<-s.Done()
	}
}
