package screen

import (
	"slices"
	"sync"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/mutation"
)

// Cache is the raw entry list of one screen, newest first as the server
// returns it.
type Cache struct {
	mu      sync.RWMutex
	entries []ledger.Entry
}

// Replace swaps in a freshly loaded list. Entries for which skip returns
// true are left out; skip may be nil.
func (c *Cache) Replace(entries []ledger.Entry, skip func(ledger.Entry) bool) {
	kept := make([]ledger.Entry, 0, len(entries))
	for _, e := range entries {
		if skip != nil && skip(e) {
			continue
		}
		kept = append(kept, e)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = kept
}

// Snapshot returns a copy of the cached entries.
func (c *Cache) Snapshot() []ledger.Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entries)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Remove implements mutation.List.
func (c *Cache) Remove(id string) (ledger.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.entries, func(e ledger.Entry) bool { return e.ID == id })
	if i < 0 {
		return ledger.Entry{}, false
	}
	e := c.entries[i]
	c.entries = slices.Delete(c.entries, i, i+1)
	return e, true
}

// Restore implements mutation.List. An entry already present, e.g. from a
// reload, is not added twice.
func (c *Cache) Restore(e ledger.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.ContainsFunc(c.entries, func(x ledger.Entry) bool { return x.ID == e.ID }) {
		return
	}
	c.entries = mutation.InsertByDate(c.entries, e)
}
