// Package crypto provides cryptographic primitives for the node: SHA-256
// hashing and Ed25519 signing, exposed as the single boundary every other
// package goes through rather than importing crypto/sha256 or
// crypto/ed25519 directly.
package crypto

import (
	"crypto/sha256"

	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// Hash computes a SHA-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return sha256.Sum256(data)
}

// DoubleHash computes Hash(Hash(data)).
func DoubleHash(data []byte) types.Hash {
	first := Hash(data)
	return Hash(first[:])
}

// HashConcat hashes the concatenation of two hashes. Used for building
// Merkle trees.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}
