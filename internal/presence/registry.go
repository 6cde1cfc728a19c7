// Package presence tracks which live connection sessions belong to which user.
package presence

import "sync"

// Session is a live connection that can receive encoded frames.
type Session interface {
	ID() string
	// Deliver queues frame for the client. It must not block; it reports
	// false when the session could not accept the frame.
	Deliver(frame []byte) bool
}

// Registry maps user ids to their live sessions. A session belongs to at
// most one user at a time. All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	byUser    map[string]map[string]Session
	userOfSes map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser:    make(map[string]map[string]Session),
		userOfSes: make(map[string]string),
	}
}

// Register binds session to userID. Registering the same pair twice is a
// no-op. A session previously bound to another user is moved.
func (r *Registry) Register(userID string, session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := session.ID()
	if prev, ok := r.userOfSes[id]; ok && prev != userID {
		r.removeLocked(prev, id)
	}
	sessions, ok := r.byUser[userID]
	if !ok {
		sessions = make(map[string]Session)
		r.byUser[userID] = sessions
	}
	sessions[id] = session
	r.userOfSes[id] = userID
}

// Deregister removes sessionID from whichever user holds it and returns
// that user. ok is false when the session was never registered.
func (r *Registry) Deregister(sessionID string) (userID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok = r.userOfSes[sessionID]
	if !ok {
		return "", false
	}
	r.removeLocked(userID, sessionID)
	return userID, true
}

func (r *Registry) removeLocked(userID, sessionID string) {
	if sessions, ok := r.byUser[userID]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.byUser, userID)
		}
	}
	delete(r.userOfSes, sessionID)
}

// SessionsFor returns a point-in-time copy of userID's live sessions.
func (r *Registry) SessionsFor(userID string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.byUser[userID]
	if len(sessions) == 0 {
		return nil
	}
	out := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s)
	}
	return out
}

// UserOf reports the user a session is registered under.
func (r *Registry) UserOf(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.userOfSes[sessionID]
	return userID, ok
}

// Count returns the number of sessions registered for userID.
func (r *Registry) Count(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID])
}

// Users returns the number of users with at least one live session.
func (r *Registry) Users() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
