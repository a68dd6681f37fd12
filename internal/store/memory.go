package store

import (
	"context"
	"sort"
	"sync"

	"github.com/JonMunkholm/contactload/internal/core"
)

// Memory is an in-process contact store with the same upsert semantics as
// Postgres. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	nextID   int64
	contacts map[int64]core.Contact
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{contacts: make(map[int64]core.Contact)}
}

// Upsert stores c. A zero ID gets the next free ID; a set ID replaces the
// stored contact with that ID.
func (m *Memory) Upsert(ctx context.Context, c *core.Contact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c.ID == 0 {
		m.nextID++
		c.ID = m.nextID
	} else if c.ID > m.nextID {
		m.nextID = c.ID
	}
	m.contacts[c.ID] = *c
	return nil
}

// List returns contacts ordered by ID.
func (m *Memory) List(ctx context.Context, limit, offset int) ([]core.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	m.mu.RLock()
	all := make([]core.Contact, 0, len(m.contacts))
	for _, c := range m.contacts {
		all = append(all, c)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return []core.Contact{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Count returns the number of stored contacts.
func (m *Memory) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.contacts)), nil
}
