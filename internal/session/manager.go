package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/signalsfoundry/comms-inspector/dataset"
)

const (
	// HeaderName carries the session id on API requests.
	HeaderName = "X-Session-ID"
	// DefaultID is used when a request names no session.
	DefaultID = "default"

	defaultMaxSessions = 256
)

// ErrTooManySessions is returned when a new session would exceed the limit.
var ErrTooManySessions = errors.New("too many sessions")

// Manager owns the sessions over one dataset.
type Manager struct {
	data *dataset.Dataset
	opts Options
	max  int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a manager for data. maxSessions <= 0 uses a default.
func NewManager(data *dataset.Dataset, opts Options, maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	return &Manager{data: data, opts: opts, max: maxSessions, sessions: make(map[string]*Session)}
}

// Dataset returns the shared dataset.
func (m *Manager) Dataset() *dataset.Dataset { return m.data }

// Get returns the session for id, creating it on first use. An empty id
// selects the default session.
func (m *Manager) Get(id string) (*Session, error) {
	if id == "" {
		id = DefaultID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	if len(m.sessions) >= m.max {
		return nil, ErrTooManySessions
	}
	s := New(id, m.data, m.opts)
	m.sessions[id] = s
	return s, nil
}

// Create starts a session under a fresh random id.
func (m *Manager) Create() (*Session, error) {
	return m.Get(uuid.NewString())
}

// Delete drops a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
