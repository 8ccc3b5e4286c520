// Package block defines the block type, Merkle commitment, and structural
// validation for the account-model chain.
package block

import (
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// Block is a single entry in the chain: a header plus its ordered
// transaction list and the header's computed hash.
type Block struct {
	Header       *Header           `json:"header"`
	Transactions []*tx.Transaction `json:"transactions"`
	Hash         types.Hash        `json:"hash"`
}

// NewBlock creates a block with its Merkle root and hash computed from the
// given header fields and transactions. Difficulty on header should already
// be set by the caller; consensus.Seal later fills Nonce and sets Hash for
// the winning nonce.
func NewBlock(header *Header, txs []*tx.Transaction) *Block {
	hashes := make([]types.Hash, len(txs))
	for i, t := range txs {
		hashes[i] = t.Hash()
	}
	header.MerkleRoot = ComputeMerkleRoot(hashes)
	b := &Block{Header: header, Transactions: txs}
	b.Hash = header.Hash(len(txs))
	return b
}

// RecomputeHash returns the block's hash recomputed from its current header
// and transaction count, ignoring the cached Hash field. Used by validation
// to detect tampering.
func (b *Block) RecomputeHash() types.Hash {
	return b.Header.Hash(len(b.Transactions))
}

// RecomputeMerkleRoot returns the Merkle root recomputed from the block's
// current transaction list, ignoring the cached header field.
func (b *Block) RecomputeMerkleRoot() types.Hash {
	hashes := make([]types.Hash, len(b.Transactions))
	for i, t := range b.Transactions {
		hashes[i] = t.Hash()
	}
	return ComputeMerkleRoot(hashes)
}
