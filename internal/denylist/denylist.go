package denylist

import (
	"sync"
	"time"
)

// Denylist is the shared deny-list contract. The in-memory implementation
// below covers single-process deployments; clustered deployments swap in a
// shared store behind the same interface.
type Denylist interface {
	Add(token string, ttl time.Duration)
	Contains(token string) bool
	Close()
}

type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	stop    chan struct{}
	once    sync.Once
}

func NewMemory() *Memory {
	m := &Memory{
		entries: make(map[string]time.Time),
		stop:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory) Add(token string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	m.entries[token] = time.Now().Add(ttl)
	m.mu.Unlock()
}

func (m *Memory) Contains(token string) bool {
	m.mu.RLock()
	exp, ok := m.entries[token]
	m.mu.RUnlock()
	return ok && time.Now().Before(exp)
}

func (m *Memory) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Memory) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for token, exp := range m.entries {
				if now.After(exp) {
					delete(m.entries, token)
				}
			}
			m.mu.Unlock()
		}
	}
}
