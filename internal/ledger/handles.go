package ledger

import (
	"fmt"
	"sync"

	"github.com/trogers1052/flexbot/internal/models"
)

// CachedPosition is one open position as shown by a user's latest listing
type CachedPosition struct {
	Handle   int
	Position models.Position
	Closed   bool
}

// HandleCache remembers, per owner, the open positions of the most recent
// listing so that handles can be resolved by a later close command.
//
// Put is last-write-wins: a new listing replaces the previous entry and the
// handles shown by the older listing stop resolving to it.
type HandleCache interface {
	Put(ownerID string, entries []CachedPosition)
	// Claim marks the entry for handle as closed and returns it. It fails with
	// models.ErrUnknownHandle or models.ErrAlreadyClosed.
	Claim(ownerID string, handle int) (CachedPosition, error)
	// Release undoes a Claim whose close did not go through. It only touches
	// the entry if it still refers to positionID.
	Release(ownerID string, handle, positionID int)
}

// MemoryHandleCache is a process-wide HandleCache. Entries are never evicted.
type MemoryHandleCache struct {
	mu      sync.Mutex
	entries map[string][]*CachedPosition
}

// NewMemoryHandleCache creates an empty cache
func NewMemoryHandleCache() *MemoryHandleCache {
	return &MemoryHandleCache{entries: make(map[string][]*CachedPosition)}
}

func (c *MemoryHandleCache) Put(ownerID string, entries []CachedPosition) {
	list := make([]*CachedPosition, len(entries))
	for i := range entries {
		e := entries[i]
		list[i] = &e
	}

	c.mu.Lock()
	c.entries[ownerID] = list
	c.mu.Unlock()
}

func (c *MemoryHandleCache) Claim(ownerID string, handle int) (CachedPosition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, ok := c.entries[ownerID]
	if !ok {
		return CachedPosition{}, fmt.Errorf("%w: no listing cached for owner", models.ErrUnknownHandle)
	}
	for _, e := range list {
		if e.Handle != handle {
			continue
		}
		if e.Closed {
			return CachedPosition{}, models.ErrAlreadyClosed
		}
		e.Closed = true
		return *e, nil
	}
	return CachedPosition{}, fmt.Errorf("%w: %d", models.ErrUnknownHandle, handle)
}

func (c *MemoryHandleCache) Release(ownerID string, handle, positionID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries[ownerID] {
		if e.Handle == handle && e.Position.ID == positionID {
			e.Closed = false
			return
		}
	}
}

// Get returns a copy of the cached listing of an owner
func (c *MemoryHandleCache) Get(ownerID string) ([]CachedPosition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, ok := c.entries[ownerID]
	if !ok {
		return nil, false
	}
	out := make([]CachedPosition, len(list))
	for i, e := range list {
		out[i] = *e
	}
	return out, true
}
