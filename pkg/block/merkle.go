package block

import (
	"github.com/klingnet-core/klingnet-core/pkg/crypto"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// ComputeMerkleRoot calculates the Merkle root of a transaction-hash list
// by iterative pair-hashing. When a level has an odd number of nodes, the
// last node is promoted unchanged to the next level rather than duplicated
// against itself — duplicating an odd leaf lets an attacker append a copy
// of the last transaction and leave the root unchanged, so this
// implementation never does that.
//
//   - 0 hashes: returns the zero hash.
//   - 1 hash: returns that hash.
//   - Otherwise: pairwise hash each level, promoting a lone trailing node,
//     until one hash remains.
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	if len(txHashes) == 0 {
		return types.Hash{}
	}
	if len(txHashes) == 1 {
		return txHashes[0]
	}

	level := make([]types.Hash, len(txHashes))
	copy(level, txHashes)

	for len(level) > 1 {
		pairs := len(level) / 2
		next := make([]types.Hash, 0, pairs+len(level)%2)
		for i := 0; i < pairs; i++ {
			next = append(next, crypto.HashConcat(level[2*i], level[2*i+1]))
		}
		if len(level)%2 != 0 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}

	return level[0]
}
