package repo

import (
	"context"
	"sync"
)

// MemRepo is a thread-safe in-memory Repository. A clone function isolates
// stored entities from caller mutation; pass nil for plain value copies of
// types without reference fields.
type MemRepo[T any, ID comparable] struct {
	mu    sync.RWMutex
	items map[ID]T
	order []ID // insertion order for stable listings
	clone func(T) T
}

// NewMemRepo creates an empty in-memory repository.
func NewMemRepo[T any, ID comparable](clone func(T) T) *MemRepo[T, ID] {
	return &MemRepo[T, ID]{items: make(map[ID]T), clone: clone}
}

func (m *MemRepo[T, ID]) copyOf(v T) T {
	if m.clone == nil {
		return v
	}
	return m.clone(v)
}

// Get returns the entity for id or ErrNotFound.
func (m *MemRepo[T, ID]) Get(_ context.Context, id ID) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return m.copyOf(v), nil
}

// List returns entities in insertion order, honoring opts.
func (m *MemRepo[T, ID]) List(_ context.Context, opts ListOpts) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []T
	for _, id := range m.order {
		v := m.items[id]
		if opts.Match != nil && !opts.Match(v) {
			continue
		}
		out = append(out, m.copyOf(v))
	}
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Put inserts or replaces the entity under id.
func (m *MemRepo[T, ID]) Put(_ context.Context, id ID, entity T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[id]; !exists {
		m.order = append(m.order, id)
	}
	m.items[id] = m.copyOf(entity)
	return nil
}

// Delete removes the entity under id; missing ids return ErrNotFound.
func (m *MemRepo[T, ID]) Delete(_ context.Context, id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored entities.
func (m *MemRepo[T, ID]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Keys returns all ids sorted by insertion order.
func (m *MemRepo[T, ID]) Keys() []ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ID, len(m.order))
	copy(out, m.order)
	return out
}
