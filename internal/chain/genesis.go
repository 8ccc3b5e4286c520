package chain

import (
	"fmt"

	"github.com/klingnet-core/klingnet-core/config"
	"github.com/klingnet-core/klingnet-core/internal/consensus"
	"github.com/klingnet-core/klingnet-core/pkg/block"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// CreateGenesisBlock builds and mines the deterministic genesis block from
// gen: a single coinbase-like transaction with amount 0, sender "0",
// recipient gen.GenesisRecipient, fixed timestamp and data, mined to
// gen.Protocol.Consensus.InitialDifficulty. Two nodes constructing genesis
// from identical config produce byte-identical blocks.
//
// The zero-amount coinbase would fail block.Validate's generic
// coinbase-shape rule (amount must be positive) — genesis is never admitted
// through that generic validator. It is constructed directly here and
// trusted as the chain's fixed root; ValidateChain treats index 0 as a
// special case for exactly this reason.
func CreateGenesisBlock(gen *config.Genesis) (*block.Block, error) {
	if gen == nil {
		return nil, fmt.Errorf("genesis config is nil")
	}

	coinbase := &tx.Transaction{
		ID:        "genesis",
		From:      tx.CoinbaseSender,
		To:        types.Address(gen.GenesisRecipient),
		Amount:    0,
		Timestamp: gen.Timestamp,
		Data:      []byte(gen.ExtraData),
	}

	header := &block.Header{
		Index:      0,
		Timestamp:  gen.Timestamp,
		PrevHash:   types.Hash{},
		Difficulty: gen.Protocol.Consensus.InitialDifficulty,
	}

	blk := block.NewBlock(header, []*tx.Transaction{coinbase})

	pow := &consensus.PoW{InitialDifficulty: header.Difficulty}
	if err := pow.Seal(blk); err != nil {
		return nil, fmt.Errorf("seal genesis block: %w", err)
	}
	return blk, nil
}
