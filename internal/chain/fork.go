package chain

import (
	"fmt"

	"github.com/klingnet-core/klingnet-core/internal/log"
	"github.com/klingnet-core/klingnet-core/pkg/block"
)

// ResolveConflict implements the §4.C longest-chain fork rule: accept
// candidate iff it is strictly longer than the local chain, structurally
// valid, and every non-coinbase transaction in it is valid under current
// rules. On acceptance, the local chain and block store are atomically
// replaced; the caller is still responsible for resyncing the wallet view
// and invalidating the balance cache (ResolveConflict only owns the chain
// vector and its on-disk persistence).
//
// Equal-length disagreement is never a replacement. Per the documented
// decision for spec's open question on fork tie-breaking, this
// implementation keeps the local chain on ties rather than adopting a
// first-seen or lowest-hash rule.
func (c *Chain) ResolveConflict(candidate []*block.Block) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(candidate) <= len(c.blocks) {
		return false, nil
	}
	if err := ValidateChain(candidate, c.gen); err != nil {
		return false, err
	}

	if err := c.store.Clear(); err != nil {
		return false, fmt.Errorf("clear block store for replacement: %w", err)
	}
	for _, blk := range candidate {
		if err := c.store.Save(blk); err != nil {
			return false, fmt.Errorf("persist replacement block %d: %w", blk.Header.Index, err)
		}
	}

	c.blocks = candidate
	log.Chain.Info().Int("new_height", len(candidate)-1).Msg("chain replaced via fork resolution")
	return true, nil
}
