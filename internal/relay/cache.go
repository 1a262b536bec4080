package relay

import (
	"sync"

	"github.com/aiwot/reputation-engine/internal/scoring"
	"github.com/aiwot/reputation-engine/internal/wottype"
)

// recursionCache memoizes attester resolution across a single Score call and
// breaks cycles: an author is marked in-flight with a zero-valued placeholder
// before its own attestations are fetched, so a cycle back to that author
// resolves to "untrusted" rather than recursing forever.
type recursionCache struct {
	mu      sync.Mutex
	entries map[wottype.Key]scoring.Result
	pending map[wottype.Key]bool
}

func newRecursionCache() *recursionCache {
	return &recursionCache{
		entries: make(map[wottype.Key]scoring.Result),
		pending: make(map[wottype.Key]bool),
	}
}

// lookup returns a cached result and whether the caller should skip
// recomputation. found is true both for a completed entry and for a cycle
// back to an in-flight author (which resolves as untrusted, Result{}).
func (c *recursionCache) lookup(author wottype.Key) (result scoring.Result, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.entries[author]; ok {
		return r, true
	}
	if c.pending[author] {
		return scoring.Result{}, true
	}
	return scoring.Result{}, false
}

// markPending records author as in-flight. Call before recursing into its
// attestations.
func (c *recursionCache) markPending(author wottype.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[author] = true
}

// store records the finished result and clears the pending marker.
func (c *recursionCache) store(author wottype.Key, result scoring.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, author)
	c.entries[author] = result
}
