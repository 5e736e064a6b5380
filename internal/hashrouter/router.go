// Package hashrouter tracks per-object flags keyed by hash, deduplicating
// work across the process: the first caller to set a flag wins, later
// callers learn the work is already done.
package hashrouter

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/LeJamon/goledgerd/internal/core/ledger"
	"github.com/LeJamon/goledgerd/internal/core/types"
)

// defaultCapacity bounds how many hashes the router remembers.
const defaultCapacity = 65536

// Router holds flags for recently seen hashes.
type Router struct {
	mu      sync.Mutex
	entries *lru.Cache[types.Hash256, uint32]
}

// New creates a router remembering up to capacity hashes; zero uses the
// default.
func New(capacity int) *Router {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	entries, _ := lru.New[types.Hash256, uint32](capacity)
	return &Router{entries: entries}
}

// SetFlag sets flag on hash. Returns false when the flag was already set.
func (r *Router) SetFlag(hash types.Hash256, flag uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	flags, _ := r.entries.Get(hash)
	if flags&flag != 0 {
		return false
	}
	r.entries.Add(hash, flags|flag)
	return true
}

// Flags returns the flags recorded for hash.
func (r *Router) Flags(hash types.Hash256) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	flags, _ := r.entries.Get(hash)
	return flags
}

var _ ledger.HashRouter = (*Router)(nil)
