package server

import (
	"log/slog"
	"sync"
	"time"
)

// sessionManager tracks live MCP sessions so connection churn shows up
// in the logs and the health endpoint can report activity.
type sessionManager struct {
	log *slog.Logger

	mu     sync.Mutex
	active map[string]time.Time
}

func newSessionManager(log *slog.Logger) *sessionManager {
	return &sessionManager{
		log:    log,
		active: make(map[string]time.Time),
	}
}

func (m *sessionManager) register(id string) {
	m.mu.Lock()
	m.active[id] = time.Now()
	n := len(m.active)
	m.mu.Unlock()
	m.log.Info("session started", "session", id, "active", n)
}

func (m *sessionManager) release(id string) {
	m.mu.Lock()
	started, ok := m.active[id]
	delete(m.active, id)
	n := len(m.active)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.log.Info("session ended", "session", id, "duration", time.Since(started).Round(time.Millisecond), "active", n)
}

func (m *sessionManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
