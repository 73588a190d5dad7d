package player

import (
	"sync"

	"groovebot/internal/logging"
)

// Manager tracks one State per guild, creating sessions on demand and
// replacing dead ones, mirroring how the command layer looks up voice state.
type Manager struct {
	mu     sync.Mutex
	states map[string]*State
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{states: make(map[string]*State)}
}

// Get returns the live session for a guild, or nil.
func (m *Manager) Get(guildID string) *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.states[guildID]
	if s == nil || !s.Exists() {
		return nil
	}
	return s
}

// GetOrCreate returns the live session for a guild, creating one via the
// factory when none exists. The factory runs under the manager lock so two
// interactions racing on the same guild produce one session.
func (m *Manager) GetOrCreate(guildID string, factory func() (*State, error)) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.states[guildID]; s != nil && s.Exists() {
		return s, nil
	}
	s, err := factory()
	if err != nil {
		return nil, err
	}
	m.states[guildID] = s
	logging.Player("guild %s: created voice session", guildID)
	return s, nil
}

// Remove stops and forgets a guild's session.
func (m *Manager) Remove(guildID string) {
	m.mu.Lock()
	s := m.states[guildID]
	delete(m.states, guildID)
	m.mu.Unlock()

	if s != nil {
		s.Stop()
	}
}

// StopAll stops every session. Called at shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	states := make([]*State, 0, len(m.states))
	for _, s := range m.states {
		states = append(states, s)
	}
	m.states = make(map[string]*State)
	m.mu.Unlock()

	for _, s := range states {
		s.Stop()
	}
}

// Count returns the number of tracked sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
