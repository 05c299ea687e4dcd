package terminal

import "sync"

// Registry tracks every session accepted since the server started. The
// acceptor inserts and the shutdown broadcast iterates; sessions are
// not removed when a client disconnects naturally, so the broadcast
// reaches every socket that was ever attached. Sends to dead sockets
// fail quietly.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers the session and reports whether a session with the
// same identity was already present. The session is retained either
// way.
func (r *Registry) Add(s *Session) (duplicate bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, duplicate = r.sessions[s.ID()]
	r.sessions[s.ID()] = s
	return duplicate
}

// Get returns the session with the given identity, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sessions returns a snapshot of every registered session.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
