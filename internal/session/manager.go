package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSessions limits concurrent sessions to bound staged file storage
const DefaultMaxSessions = 100

// SessionKeepAliveWindow is how long to keep sessions that are actively being used
const SessionKeepAliveWindow = 5 * time.Minute

// Forgetter is told when a session goes away so per-session resources can be dropped.
type Forgetter interface {
	Forget(sessionID string)
}

// Manager handles the conversion sessions of all open pages.
type Manager struct {
	sessions    map[string]*SessionState
	mu          sync.RWMutex
	deps        Deps
	maxSessions int
	forgetter   Forgetter
}

// SessionState holds a controller and its access metadata.
type SessionState struct {
	Controller   *Controller
	CreatedAt    time.Time
	LastAccessed time.Time // Last time the session was accessed (for keep-alive)
}

// NewManager creates a session manager whose controllers share deps.
func NewManager(deps Deps, maxSessions int) *Manager {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{
		sessions:    make(map[string]*SessionState),
		deps:        deps,
		maxSessions: maxSessions,
	}
}

// SetForgetter registers a hook called with the id of every removed session.
func (m *Manager) SetForgetter(f Forgetter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forgetter = f
}

// Create starts a new session in the Idle state.
func (m *Manager) Create() *Controller {
	// Make room if at capacity
	m.evictIfNeeded()

	id := uuid.New().String()
	ctrl := NewController(id, m.deps)
	now := m.deps.Now()

	m.mu.Lock()
	m.sessions[id] = &SessionState{
		Controller:   ctrl,
		CreatedAt:    now,
		LastAccessed: now,
	}
	m.mu.Unlock()

	fmt.Printf("[Manager] Created session %s\n", shortID(id))
	return ctrl
}

// Get returns the controller of a session and marks it as accessed.
func (m *Manager) Get(id string) (*Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	state.LastAccessed = m.deps.Now()
	return state.Controller, true
}

// TouchSession updates the LastAccessed timestamp for a session.
func (m *Manager) TouchSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = m.deps.Now()
	return true
}

// Delete removes a session and releases its staged file.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	state, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	forgetter := m.forgetter
	m.mu.Unlock()

	if !ok {
		return false
	}
	m.release(state, forgetter)
	return true
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupOldSessions removes sessions not accessed within maxAge.
// Sessions with a request in flight are kept.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	now := m.deps.Now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	m.mu.Lock()
	var removed []*SessionState
	for id, state := range m.sessions {
		// Don't clean up sessions that are actively being used
		if state.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		if state.Controller.State().IsBusy() {
			continue
		}
		if state.LastAccessed.Before(cutoff) {
			delete(m.sessions, id)
			removed = append(removed, state)
		}
	}
	forgetter := m.forgetter
	m.mu.Unlock()

	for _, state := range removed {
		m.release(state, forgetter)
		fmt.Printf("[Manager] Cleaned up aged session %s (last accessed: %s ago)\n",
			shortID(state.Controller.ID()), now.Sub(state.LastAccessed).Round(time.Second))
	}
	return len(removed)
}

// evictIfNeeded removes the least recently used idle sessions when at capacity.
func (m *Manager) evictIfNeeded() {
	m.mu.Lock()
	if len(m.sessions) < m.maxSessions {
		m.mu.Unlock()
		return
	}

	candidates := make([]*SessionState, 0, len(m.sessions))
	for _, state := range m.sessions {
		if !state.Controller.State().IsBusy() {
			candidates = append(candidates, state)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessed.Before(candidates[j].LastAccessed)
	})

	toFree := len(m.sessions) - m.maxSessions + 1
	var removed []*SessionState
	for _, state := range candidates {
		if len(removed) >= toFree {
			break
		}
		delete(m.sessions, state.Controller.ID())
		removed = append(removed, state)
	}
	forgetter := m.forgetter
	m.mu.Unlock()

	for _, state := range removed {
		m.release(state, forgetter)
		fmt.Printf("[Manager] Evicted session %s to stay under %d sessions\n", shortID(state.Controller.ID()), m.maxSessions)
	}
}

func (m *Manager) release(state *SessionState, forgetter Forgetter) {
	state.Controller.Close()
	if forgetter != nil {
		forgetter.Forget(state.Controller.ID())
	}
}

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
