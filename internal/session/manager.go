package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Manager keeps the live sessions in memory, keyed by token. Sessions idle
// for longer than the TTL are dropped the next time the manager is used.
type Manager struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*entry
	gauge    prometheus.Gauge // optional, follows len(sessions)
}

type entry struct {
	s        *Session
	lastSeen time.Time
}

// NewManager returns an empty Manager.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{ttl: ttl, now: time.Now, sessions: make(map[string]*entry)}
}

// add assigns a fresh token to s and stores it. The caller holds s.mu.
func (m *Manager) add(s *Session) string {
	token := uuid.NewString()
	s.token = token

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.sessions[token] = &entry{s: s, lastSeen: m.now()}
	m.reportLocked()
	return token
}

// Get returns the live session for token and refreshes its idle timer.
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()

	e, ok := m.sessions[token]
	if !ok {
		return nil, false
	}
	e.lastSeen = m.now()
	return e.s, true
}

// Remove forgets token. Unknown tokens are ignored.
func (m *Manager) Remove(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	m.reportLocked()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	return len(m.sessions)
}

func (m *Manager) sweepLocked() {
	cutoff := m.now().Add(-m.ttl)
	for token, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(m.sessions, token)
		}
	}
	m.reportLocked()
}

// observe makes g track the number of live sessions.
func (m *Manager) observe(g prometheus.Gauge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauge = g
	m.reportLocked()
}

func (m *Manager) reportLocked() {
	if m.gauge != nil {
		m.gauge.Set(float64(len(m.sessions)))
	}
}
