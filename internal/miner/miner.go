// Package miner implements the optional background block-production loop:
// spec's mine_block operation run continuously on a timer rather than
// on demand. Grounded on the teacher's internal/miner/miner.go (context-
// cancellable block production) and internal/node/node.go's miner-loop
// wiring, narrowed from UTXO output selection and a configurable block
// reward/supply cap down to this chain's fixed coinbase-subsidy rule,
// which already lives in internal/chain.Chain.MineBlockWithReward.
package miner

import (
	"context"
	"time"

	"github.com/klingnet-core/klingnet-core/internal/log"
	"github.com/klingnet-core/klingnet-core/pkg/block"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// DefaultInterval is how often the background loop attempts to mine a
// block when the caller does not specify one.
const DefaultInterval = 5 * time.Second

// BlockMiner is the single orchestrator operation the background loop
// drives: drain the mempool top-by-fee, mine, append, persist, invalidate
// the cache, and broadcast (spec's mine_block, §6).
type BlockMiner interface {
	MineBlock(minerAddr types.Address, maxTxs int) (*block.Block, error)
}

// Miner repeatedly calls a BlockMiner's MineBlock on a fixed interval until
// its context is cancelled. A single attempt is never interrupted mid-seal;
// cancellation only takes effect between attempts, which is sufficient at
// this chain's low starting difficulty.
type Miner struct {
	target   BlockMiner
	addr     types.Address
	maxTxs   int
	interval time.Duration
}

// New creates a background miner paying rewards to addr, draining up to
// maxTxs mempool transactions per block, attempting a block every interval.
// A non-positive interval falls back to DefaultInterval.
func New(target BlockMiner, addr types.Address, maxTxs int, interval time.Duration) *Miner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Miner{target: target, addr: addr, maxTxs: maxTxs, interval: interval}
}

// Run blocks, mining once per tick, until ctx is cancelled. Intended to be
// launched in its own goroutine by the orchestrator's Start.
func (m *Miner) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			blk, err := m.target.MineBlock(m.addr, m.maxTxs)
			if err != nil {
				log.Miner.Debug().Err(err).Msg("mine attempt failed")
				continue
			}
			log.Miner.Info().
				Uint64("index", blk.Header.Index).
				Str("hash", blk.Hash.String()).
				Int("txs", len(blk.Transactions)).
				Msg("mined block")
		}
	}
}
