package store

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Recorder. It backs tests and lets the bot run
// without a spreadsheet backend.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string][]Record
	err         error
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]Record)}
}

// FailWith makes every subsequent call return err (nil restores normal
// operation). Used to simulate an unreachable backend.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Seed replaces a collection's contents.
func (m *MemoryStore) Seed(collection string, records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = cloneRecords(records)
}

// List returns a copy of the collection.
func (m *MemoryStore) List(_ context.Context, collection string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, fmt.Errorf("store: list: %w", m.err)
	}
	return cloneRecords(m.collections[collection]), nil
}

// Append adds copies of records to the collection.
func (m *MemoryStore) Append(_ context.Context, collection string, records ...Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return fmt.Errorf("store: append: %w", m.err)
	}
	m.collections[collection] = append(m.collections[collection], cloneRecords(records)...)
	return nil
}

// Update merges patch into every record whose key equals value.
func (m *MemoryStore) Update(_ context.Context, collection, key, value string, patch Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return fmt.Errorf("store: update %s=%s: %w", key, value, m.err)
	}
	for _, r := range m.collections[collection] {
		if r[key] != value {
			continue
		}
		for k, v := range patch {
			r[k] = v
		}
	}
	return nil
}

// Delete removes every record whose key equals value.
func (m *MemoryStore) Delete(_ context.Context, collection, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return fmt.Errorf("store: delete %s=%s: %w", key, value, m.err)
	}
	kept := m.collections[collection][:0]
	for _, r := range m.collections[collection] {
		if r[key] != value {
			kept = append(kept, r)
		}
	}
	m.collections[collection] = kept
	return nil
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		c := make(Record, len(r))
		for k, v := range r {
			c[k] = v
		}
		out = append(out, c)
	}
	return out
}
