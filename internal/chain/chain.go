// Package chain implements the account-model blockchain state machine:
// genesis construction, block admission and mining, difficulty retargeting,
// balance derivation, and longest-chain fork resolution.
package chain

import (
	"fmt"
	"sync"
	"time"

	"github.com/klingnet-core/klingnet-core/config"
	"github.com/klingnet-core/klingnet-core/internal/consensus"
	"github.com/klingnet-core/klingnet-core/internal/log"
	"github.com/klingnet-core/klingnet-core/pkg/block"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// Chain holds the canonical block vector and consensus rules for a single
// account-model proof-of-work chain. All mutation happens under mu.
// Callers that need the chain, wallet view, mempool, and cache together
// must acquire them in that order — chain → wallet view → mempool → cache —
// to avoid deadlock under contention (see design notes on lock ordering).
type Chain struct {
	mu     sync.Mutex
	blocks []*block.Block
	store  *BlockStore
	pow    *consensus.PoW
	rules  config.ConsensusRules
	gen    *config.Genesis
}

// New opens a chain backed by a flat-file block store at storeDir,
// configured with gen's consensus rules. If the store already holds
// blocks, they are loaded and structurally revalidated (§4.G); an invalid
// stored chain is discarded in favor of a freshly mined genesis.
func New(storeDir string, gen *config.Genesis) (*Chain, error) {
	if gen == nil {
		return nil, fmt.Errorf("genesis config is nil")
	}

	store, err := NewBlockStore(storeDir)
	if err != nil {
		return nil, err
	}

	rules := gen.Protocol.Consensus
	pow := &consensus.PoW{
		InitialDifficulty: rules.InitialDifficulty,
		RetargetInterval:  rules.RetargetInterval,
		TargetBlockTime:   rules.TargetBlockTime,
	}

	c := &Chain{store: store, pow: pow, rules: rules, gen: gen}

	loaded, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load block store: %w", err)
	}

	if len(loaded) > 0 {
		if err := ValidateChain(loaded, gen); err != nil {
			log.Chain.Warn().Err(err).Msg("stored chain failed validation, restarting from genesis")
		} else {
			c.blocks = loaded
			return c, nil
		}
	}

	genesisBlk, err := CreateGenesisBlock(gen)
	if err != nil {
		return nil, fmt.Errorf("create genesis: %w", err)
	}
	if err := store.Clear(); err != nil {
		return nil, fmt.Errorf("clear block store before reset: %w", err)
	}
	if err := store.Save(genesisBlk); err != nil {
		return nil, fmt.Errorf("persist genesis: %w", err)
	}
	c.blocks = []*block.Block{genesisBlk}
	return c, nil
}

// AddBlock runs the §4.C admission procedure for a transaction list that
// may already include a coinbase (at most one) and any number of system
// staking transactions: validates every normal transaction, computes the
// next difficulty, mines a block atop the current tip, and appends it.
// Callers wanting a block reward should use MineBlockWithReward instead.
func (c *Chain) AddBlock(txs []*tx.Transaction, view WalletView) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addBlockLocked(txs, view)
}

func (c *Chain) addBlockLocked(txs []*tx.Transaction, view WalletView) (*block.Block, error) {
	if len(txs) == 0 {
		return nil, block.ErrEmptyBlock
	}

	for _, t := range txs {
		if t.Kind() != tx.SenderNormal {
			continue
		}
		if err := c.validateTransaction(t, view); err != nil {
			return nil, fmt.Errorf("tx %s: %w", t.ID, err)
		}
	}

	tip := c.blocks[len(c.blocks)-1]
	header := &block.Header{
		Index:      tip.Header.Index + 1,
		Timestamp:  time.Now().Unix(),
		PrevHash:   tip.Hash,
		Difficulty: c.nextDifficultyLocked(),
	}
	blk := block.NewBlock(header, txs)

	if err := c.pow.Seal(blk); err != nil {
		return nil, fmt.Errorf("seal block %d: %w", header.Index, err)
	}
	if err := blk.Validate(c.rules.MaxTransactionsPerBlock, c.rules.MaxBlockSizeBytes); err != nil {
		return nil, err
	}
	if err := c.store.Save(blk); err != nil {
		return nil, fmt.Errorf("persist block %d: %w", header.Index, err)
	}

	c.blocks = append(c.blocks, blk)
	log.Chain.Info().Uint64("index", blk.Header.Index).Str("hash", blk.Hash.String()).Msg("block appended")
	return blk, nil
}

// MineBlockWithReward prepends a coinbase paying subsidy(chain_length) plus
// the sum of txs' fees to minerAddr, then delegates to AddBlock.
func (c *Chain) MineBlockWithReward(minerAddr types.Address, txs []*tx.Transaction, view WalletView) (*block.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reward := Subsidy(uint64(len(c.blocks))) + tx.SumFees(txs)
	coinbase := &tx.Transaction{
		ID:        fmt.Sprintf("coinbase-%d-%d", len(c.blocks), time.Now().UnixNano()),
		From:      tx.CoinbaseSender,
		To:        minerAddr,
		Amount:    reward,
		Timestamp: time.Now().Unix(),
	}

	all := make([]*tx.Transaction, 0, len(txs)+1)
	all = append(all, coinbase)
	all = append(all, txs...)
	return c.addBlockLocked(all, view)
}

// nextDifficultyLocked computes the difficulty the next block must satisfy,
// per §4.C: retargeting is decided and its window measured using the
// current (pre-append) chain length. Callers must hold c.mu.
func (c *Chain) nextDifficultyLocked() uint64 {
	tip := c.blocks[len(c.blocks)-1]
	current := tip.Header.Difficulty
	if !c.pow.ShouldRetarget(len(c.blocks)) {
		return current
	}
	span, expected := c.retargetWindowLocked()
	return consensus.Retarget(current, span, expected)
}

func (c *Chain) retargetWindowLocked() (span, expected int64) {
	n := len(c.blocks)
	interval := c.rules.RetargetInterval
	last := c.blocks[n-1]
	first := c.blocks[n-interval]
	span = last.Header.Timestamp - first.Header.Timestamp
	if span < 0 {
		span = 0
	}
	expected = c.rules.TargetBlockTime * int64(interval)
	return span, expected
}

// Height returns the current chain height (the tip block's index).
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[len(c.blocks)-1].Header.Index
}

// Len returns the number of blocks in the chain, including genesis.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.blocks)
}

// Tip returns the current tip block.
func (c *Chain) Tip() *block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[len(c.blocks)-1]
}

// TipHash returns the hash of the current tip block.
func (c *Chain) TipHash() types.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[len(c.blocks)-1].Hash
}

// Difficulty returns the difficulty the next block must satisfy.
func (c *Chain) Difficulty() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextDifficultyLocked()
}

// Snapshot returns a copy of the full block vector.
func (c *Chain) Snapshot() []*block.Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*block.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// BlockByIndex returns the block at the given index, if present.
func (c *Chain) BlockByIndex(index uint64) (*block.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index >= uint64(len(c.blocks)) {
		return nil, false
	}
	return c.blocks[index], true
}

// BlockByHash returns the block with the given hash, if present.
func (c *Chain) BlockByHash(h types.Hash) (*block.Block, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.blocks {
		if b.Hash == h {
			return b, true
		}
	}
	return nil, false
}

// GetTransaction looks up a confirmed transaction by its hash, scanning the
// chain in order.
func (c *Chain) GetTransaction(hash types.Hash) (*tx.Transaction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.blocks {
		for _, t := range b.Transactions {
			if t.Hash() == hash {
				return t, true
			}
		}
	}
	return nil, false
}

// IsChainValid revalidates the full local chain against the structural and
// historical invariants in §3/§8.
func (c *Chain) IsChainValid() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ValidateChain(c.blocks, c.gen)
}
