package results

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/contactload/internal/core"
)

// DefaultTTL is used when a non-positive TTL is given.
const DefaultTTL = 24 * time.Hour

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

// Memory is an in-process Store. Expired entries are dropped on access and
// by Sweep.
type Memory struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory returns a Memory store keeping entries for ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Save implements Store.
func (m *Memory) Save(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.UploadID] = memoryEntry{entry: e, expiresAt: m.now().Add(m.ttl)}
	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, uploadID string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	me, ok := m.entries[uploadID]
	if !ok {
		return Entry{}, core.ErrUploadNotFound
	}
	if !m.now().Before(me.expiresAt) {
		delete(m.entries, uploadID)
		return Entry{}, core.ErrUploadNotFound
	}
	return me.entry, nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, me := range m.entries {
		if !now.Before(me.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
