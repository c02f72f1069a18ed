package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/sozercan/gemini-mole/internal/gemini"
)

var errSessionNotFound = errors.New("session not found")

// registry keeps live conversations in memory, keyed by a random id.
type registry struct {
	mu       sync.RWMutex
	sessions map[string]*gemini.Session
}

func newRegistry() *registry {
	return &registry{sessions: map[string]*gemini.Session{}}
}

func (r *registry) add(s *gemini.Session) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()
	return id
}

func (r *registry) get(id string) (*gemini.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, errSessionNotFound
	}
	return s, nil
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
