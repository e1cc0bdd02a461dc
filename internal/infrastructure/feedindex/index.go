// Package feedindex keeps the current ranked feed sequence in memory.
// The ranker swaps complete sequences in; readers take point-in-time
// snapshots, so a page being served never observes a partial rerank.
package feedindex

import (
	"sync"

	"github.com/keralagri/newsreel/internal/core/domain"
)

type Index struct {
	mu      sync.RWMutex
	entries []domain.FeedEntry
}

func New() *Index {
	return &Index{}
}

func (ix *Index) Swap(entries []domain.FeedEntry) {
	ix.mu.Lock()
	ix.entries = entries
	ix.mu.Unlock()
}

// Snapshot returns the ranked sequence in rank order. The slice is the
// swapped-in sequence itself; callers must not mutate it.
func (ix *Index) Snapshot() []domain.FeedEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.entries
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}
