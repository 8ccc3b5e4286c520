// Package cache implements the tip-versioned balance cache (spec §4.E): a
// mapping from address to balance that is valid only as of one recorded
// chain tip. Any change in tip index invalidates the whole cache at once,
// rather than tracking per-address staleness.
package cache

import (
	"sync"

	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// BalanceCache is an RWMutex-guarded tip-versioned address→balance map,
// grounded on the teacher's read-heavy caches (internal/mempool.Pool,
// internal/p2p.PeerStore): a plain map behind a single lock, sized for
// read-heavy access and wholesale rather than per-key invalidation.
type BalanceCache struct {
	mu       sync.RWMutex
	tip      uint64
	hasTip   bool
	balances map[types.Address]uint64
}

// New returns an empty balance cache with no recorded tip.
func New() *BalanceCache {
	return &BalanceCache{balances: make(map[types.Address]uint64)}
}

// Get returns the cached balance for addr iff tip equals the tip recorded
// by the most recent Set/Invalidate call. Per the cache consistency law: if
// the tip index is unchanged since the value was set, Get returns it;
// any change in tip index invalidates the entire cache.
func (c *BalanceCache) Get(addr types.Address, tip uint64) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasTip || c.tip != tip {
		return 0, false
	}
	v, ok := c.balances[addr]
	return v, ok
}

// Set records addr's balance as of tip. If tip differs from the
// currently-recorded tip, the whole cache is cleared first — a Set for a
// new tip starts a fresh generation rather than mixing balances computed
// at different chain heights.
func (c *BalanceCache) Set(addr types.Address, balance uint64, tip uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasTip || c.tip != tip {
		c.balances = make(map[types.Address]uint64)
		c.tip = tip
		c.hasTip = true
	}
	c.balances[addr] = balance
}

// Invalidate drops every cached entry, used whenever the chain tip changes
// (a block is mined or accepted) so the next Get for any address is a miss
// until recomputed.
func (c *BalanceCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances = make(map[types.Address]uint64)
	c.hasTip = false
}

// Stats reports the cache's current generation tip and entry count, for
// diagnostics/RPC status surfaces.
type Stats struct {
	Tip     uint64
	HasTip  bool
	Entries int
}

// Stats returns a snapshot of the cache's current size and generation.
func (c *BalanceCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Tip: c.tip, HasTip: c.hasTip, Entries: len(c.balances)}
}
