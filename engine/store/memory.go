package store

import (
	"context"
	"sync"

	"github.com/flowcore/flowengine/engine/emit"
)

// MemStore is an in-memory Store, grounded on the teacher's MemStore
// (graph/store/memory.go). Suitable for tests and single-process deployments
// where persistence across restarts is not required.
type MemStore struct {
	mu       sync.RWMutex
	steps    map[string][]stepRecord
	pending  []outboxEntry
	byID     map[string]int
}

type stepRecord struct {
	Step  int
	State interface{}
}

type outboxEntry struct {
	ID    string
	Event emit.Event
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		steps: make(map[string][]stepRecord),
		byID:  make(map[string]int),
	}
}

func (m *MemStore) SaveStep(_ context.Context, runID string, step int, state interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[runID] = append(m.steps[runID], stepRecord{Step: step, State: state})
	return nil
}

func (m *MemStore) LoadLatest(_ context.Context, runID string) (interface{}, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.steps[runID]
	if len(records) == 0 {
		return nil, 0, ErrNotFound
	}
	latest := records[0]
	for _, r := range records[1:] {
		if r.Step > latest.Step {
			latest = r
		}
	}
	return latest.State, latest.Step, nil
}

func (m *MemStore) EnqueueEvent(_ context.Context, eventID string, ev emit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[eventID] = len(m.pending)
	m.pending = append(m.pending, outboxEntry{ID: eventID, Event: ev})
	return nil
}

func (m *MemStore) PendingEvents(_ context.Context, limit int) ([]emit.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.pending)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]emit.Event, n)
	for i := 0; i < n; i++ {
		out[i] = m.pending[i].Event
	}
	return out, nil
}

func (m *MemStore) MarkEventsEmitted(_ context.Context, eventIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	remove := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		remove[id] = true
	}
	filtered := m.pending[:0]
	newByID := make(map[string]int)
	for _, e := range m.pending {
		if remove[e.ID] {
			continue
		}
		newByID[e.ID] = len(filtered)
		filtered = append(filtered, e)
	}
	m.pending = filtered
	m.byID = newByID
	return nil
}

func (m *MemStore) Close() error { return nil }
