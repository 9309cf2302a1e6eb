// Package locking provides in-process run guards for background jobs.
package locking

import (
	"fmt"
	"sync"
	"time"
)

// Manager hands out named, non-blocking locks. Scheduled jobs acquire their
// name at the start of a run so a slow run cannot overlap the next tick.
type Manager struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewManager creates an empty lock manager
func NewManager() *Manager {
	return &Manager{held: make(map[string]time.Time)}
}

// Acquire takes the named lock, failing immediately if it is already held
func (m *Manager) Acquire(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if since, ok := m.held[name]; ok {
		return fmt.Errorf("lock %q held since %s", name, since.Format(time.RFC3339))
	}
	m.held[name] = time.Now()
	return nil
}

// Release frees the named lock
func (m *Manager) Release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
}

// ClearStuckLocks releases locks held longer than maxAge and returns their
// names. A stuck lock means a job died without releasing; clearing it lets
// the next tick run.
func (m *Manager) ClearStuckLocks(maxAge time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cleared []string
	cutoff := time.Now().Add(-maxAge)
	for name, since := range m.held {
		if since.Before(cutoff) {
			delete(m.held, name)
			cleared = append(cleared, name)
		}
	}
	return cleared
}
