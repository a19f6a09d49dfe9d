package main

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/wizard"
)

// session is one wizard owned by one operator. mu serialises requests on it.
type session struct {
	mu       sync.Mutex
	id       string
	operator string
	machine  *wizard.Machine
	lastUsed time.Time
}

type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

func newSessionRegistry(now func() time.Time) *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session), now: now}
}

func (r *sessionRegistry) create(operator string, m *wizard.Machine) *session {
	s := &session{
		id:       uuid.NewString(),
		operator: operator,
		machine:  m,
		lastUsed: r.now(),
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	return s
}

// get returns the session id of operator. Sessions of other operators are not found.
func (r *sessionRegistry) get(id, operator string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.operator != operator {
		return nil, false
	}
	s.lastUsed = r.now()
	return s, true
}

func (r *sessionRegistry) remove(id, operator string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.operator != operator {
		return false
	}
	delete(r.sessions, id)
	return true
}

// sweep drops the sessions idle for longer than maxIdle and returns how many were dropped.
func (r *sessionRegistry) sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	dropped := 0
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			dropped++
		}
	}
	return dropped
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
