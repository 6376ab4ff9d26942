package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/pddlplanning/pddlplanning-go/ontology"
)

// MemoryStore keeps records in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]Record)}
}

func clone(r Record) Record {
	r.Tasks = append([]ontology.Task(nil), r.Tasks...)
	return r
}

// Save inserts or replaces a record.
func (m *MemoryStore) Save(ctx context.Context, record Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	record = prepare(record)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = clone(record)
	return clone(record), nil
}

// Get returns a record by id.
func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return clone(r), nil
}

// List returns matching records, newest first.
func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		if filter.matches(r) {
			out = append(out, clone(r))
		}
	}
	m.mu.RUnlock()

	sortNewestFirst(out)
	if len(out) > filter.limit() {
		out = out[:filter.limit()]
	}
	return out, nil
}

// Delete removes a record.
func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
