package poll

import (
	"sync"

	"alphabot/model"
)

// Registry tracks at most one live poll session per channel. Sessions
// register on start and deregister when they close; nothing persists
// across restarts.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

// Active returns the live session for the channel, or nil.
func (r *Registry) Active(channelID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[channelID]
}

// Add registers the session unless its channel already has one.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.channelID]; ok {
		return model.ErrPollActive
	}
	r.sessions[s.channelID] = s
	return nil
}

// Remove drops the session if it is still the one registered for its
// channel. Idempotent, and a stale call can never evict a successor poll.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[s.channelID] == s {
		delete(r.sessions, s.channelID)
	}
}
