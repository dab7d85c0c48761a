// Package connectivity reports whether the remote endpoint is reachable and
// notifies subscribers when that changes.
package connectivity

import (
	"sync"
)

type Signal interface {
	Online() bool
	// Subscribe registers fn for online/offline transitions. Calling the
	// returned func removes it.
	Subscribe(fn func(online bool)) (cancel func())
}

// Manual is a Signal whose state is set explicitly. The CLI uses it for
// --offline runs and tests use it to simulate reconnects.
type Manual struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(bool)
	nextID int
}

var _ Signal = (*Manual)(nil)

func NewManual(online bool) *Manual {
	return &Manual{online: online, subs: make(map[int]func(bool))}
}

func (m *Manual) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Manual) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Set changes the state. Subscribers run synchronously, and only on an
// actual transition.
func (m *Manual) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}
