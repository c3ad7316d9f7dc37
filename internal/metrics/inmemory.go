package metrics

import (
	"sync"
	"sync/atomic"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Logins        map[string]uint64
	Registrations map[string]uint64
	TokenRejected map[string]uint64
	TasksCreated  uint64
	TasksUpdated  uint64
	TasksDeleted  uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu            sync.Mutex
	logins        map[string]uint64
	registrations map[string]uint64
	tokenRejected map[string]uint64

	tasksCreated uint64
	tasksUpdated uint64
	tasksDeleted uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		logins:        make(map[string]uint64),
		registrations: make(map[string]uint64),
		tokenRejected: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Logins:        copyCounts(m.logins),
		Registrations: copyCounts(m.registrations),
		TokenRejected: copyCounts(m.tokenRejected),
		TasksCreated:  atomic.LoadUint64(&m.tasksCreated),
		TasksUpdated:  atomic.LoadUint64(&m.tasksUpdated),
		TasksDeleted:  atomic.LoadUint64(&m.tasksDeleted),
	}
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	m.inc(m.logins, outcome)
}

// IncRegistration counts a registration attempt by outcome.
func (m *InMemoryRecorder) IncRegistration(outcome string) {
	m.inc(m.registrations, outcome)
}

// IncTokenRejected counts a rejected bearer token by reason.
func (m *InMemoryRecorder) IncTokenRejected(reason string) {
	m.inc(m.tokenRejected, reason)
}

// IncTaskCreated increments task created counter.
func (m *InMemoryRecorder) IncTaskCreated() {
	atomic.AddUint64(&m.tasksCreated, 1)
}

// IncTaskUpdated increments task updated counter.
func (m *InMemoryRecorder) IncTaskUpdated() {
	atomic.AddUint64(&m.tasksUpdated, 1)
}

// IncTaskDeleted increments task deleted counter.
func (m *InMemoryRecorder) IncTaskDeleted() {
	atomic.AddUint64(&m.tasksDeleted, 1)
}

func (m *InMemoryRecorder) inc(counts map[string]uint64, label string) {
	m.mu.Lock()
	counts[label]++
	m.mu.Unlock()
}

func copyCounts(src map[string]uint64) map[string]uint64 {
	dst := make(map[string]uint64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
