package estsync

import "sync"

// Monitor reports device connectivity and signals the offline-to-online
// transition so queued work can resume without user action.
type Monitor interface {
	Online() bool
	// OnOnline registers fn to run on each offline-to-online transition.
	// The returned func cancels the registration.
	OnOnline(fn func()) (cancel func())
}

// StatusMonitor is a settable Monitor fed by the platform's connectivity
// events. Safe for concurrent use.
type StatusMonitor struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func()
}

// NewStatusMonitor creates a monitor with the given initial state.
func NewStatusMonitor(online bool) *StatusMonitor {
	return &StatusMonitor{online: online, subs: make(map[int]func())}
}

// Online reports the current connectivity state.
func (m *StatusMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records a connectivity change. Subscribers fire synchronously on the
// offline-to-online edge only; repeated "online" reports do not re-trigger.
func (m *StatusMonitor) Set(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	var fns []func()
	if online && !wasOnline {
		fns = make([]func(), 0, len(m.subs))
		for _, fn := range m.subs {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnOnline implements Monitor.
func (m *StatusMonitor) OnOnline(fn func()) (cancel func()) {
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
