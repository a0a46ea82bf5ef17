package docstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store used by tests and by single-binary setups
// that do not want an external database. A single mutex covers all documents,
// which trivially satisfies the per-document transaction contract.
type Memory struct {
	mu   sync.Mutex
	docs map[string]Document
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

func (m *Memory) getLocked(key Key) (Document, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	doc, ok := m.docs[key.String()]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *Memory) setLocked(key Key, doc Document, merge bool) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if merge {
		if existing, ok := m.docs[key.String()]; ok {
			next := existing.Clone()
			next.Merge(doc)
			m.docs[key.String()] = next
			return nil
		}
	}
	m.docs[key.String()] = doc.Clone()
	return nil
}

// Get fetches a single document.
func (m *Memory) Get(_ context.Context, key Key) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(key)
}

// Set writes a document, merging into the existing payload when merge is true.
func (m *Memory) Set(_ context.Context, key Key, doc Document, merge bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setLocked(key, doc, merge)
}

type memoryTx struct {
	store *Memory
}

func (t *memoryTx) Get(_ context.Context, key Key) (Document, error) {
	return t.store.getLocked(key)
}

func (t *memoryTx) Set(_ context.Context, key Key, doc Document, merge bool) error {
	return t.store.setLocked(key, doc, merge)
}

// Transaction runs fn while holding the store lock, so reads and writes inside
// fn cannot interleave with other callers.
func (m *Memory) Transaction(_ context.Context, key Key, fn func(tx Tx) error) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]Document, len(m.docs))
	for k, v := range m.docs {
		snapshot[k] = v
	}
	if err := fn(&memoryTx{store: m}); err != nil {
		m.docs = snapshot
		return err
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close(context.Context) error {
	return nil
}
