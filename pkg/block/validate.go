package block

import (
	"errors"
	"fmt"

	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// Structural validation errors (§7 "Structural" kind).
var (
	ErrEmptyBlock       = errors.New("block has no transactions")
	ErrBlockTooLarge    = errors.New("block exceeds size or transaction-count cap")
	ErrMultipleCoinbase = errors.New("block has more than one coinbase transaction")
	ErrBadCoinbase      = errors.New("coinbase transaction is malformed")
	ErrBadMerkleRoot    = errors.New("merkle root mismatch")
	ErrBadPoW           = errors.New("block hash does not satisfy its difficulty")
	ErrBadHash          = errors.New("block hash does not match its recomputed hash")
	ErrNilHeader        = errors.New("block has nil header")
)

const (
	// MinCoinbaseRecipientLen / MaxCoinbaseRecipientLen bound a coinbase
	// recipient's address length so a block can't carry a degenerate or
	// oversized address as a denial-of-service vector.
	MinCoinbaseRecipientLen = 1
	MaxCoinbaseRecipientLen = 128

	// MaxCoinbaseAmount is the absolute cap on a single coinbase payout,
	// a defense-in-depth bound independent of the subsidy schedule.
	MaxCoinbaseAmount uint64 = 1 << 40
)

// Validate checks block structure and internal consistency: size and count
// caps, coinbase shape, Merkle root, and proof-of-work. It does not check
// non-coinbase transaction admission (signatures, balances, double-spend) —
// that is internal/chain's job, since it needs chain and wallet-view state
// this package doesn't have.
func (b *Block) Validate(maxTxs int, maxBlockBytes int) error {
	if b.Header == nil {
		return ErrNilHeader
	}
	if len(b.Transactions) == 0 {
		return ErrEmptyBlock
	}
	if len(b.Transactions) > maxTxs {
		return fmt.Errorf("%w: %d txs, max %d", ErrBlockTooLarge, len(b.Transactions), maxTxs)
	}

	size := b.Size()
	if size > maxBlockBytes {
		return fmt.Errorf("%w: %d bytes, max %d", ErrBlockTooLarge, size, maxBlockBytes)
	}

	coinbaseCount := 0
	for i, t := range b.Transactions {
		if !t.IsCoinbase() {
			continue
		}
		coinbaseCount++
		if coinbaseCount > 1 {
			return fmt.Errorf("tx %d: %w", i, ErrMultipleCoinbase)
		}
		if err := validateCoinbaseShape(t); err != nil {
			return fmt.Errorf("tx %d: %w: %v", i, ErrBadCoinbase, err)
		}
	}

	expectedRoot := b.RecomputeMerkleRoot()
	if b.Header.MerkleRoot != expectedRoot {
		return fmt.Errorf("%w: header=%s computed=%s", ErrBadMerkleRoot, b.Header.MerkleRoot, expectedRoot)
	}

	expectedHash := b.RecomputeHash()
	if b.Hash != expectedHash {
		return fmt.Errorf("%w: stored=%s computed=%s", ErrBadHash, b.Hash, expectedHash)
	}

	if !SatisfiesDifficulty(b.Hash, b.Header.Difficulty) {
		return fmt.Errorf("%w: hash=%s difficulty=%d", ErrBadPoW, b.Hash, b.Header.Difficulty)
	}

	return nil
}

// validateCoinbaseShape checks a coinbase transaction against §4.C step 5:
// non-empty recipient, amount within (0, MaxCoinbaseAmount], empty
// signature, and recipient length within the valid range.
func validateCoinbaseShape(t *tx.Transaction) error {
	if t.To == "" {
		return fmt.Errorf("empty recipient")
	}
	if len(t.To) < MinCoinbaseRecipientLen || len(t.To) > MaxCoinbaseRecipientLen {
		return fmt.Errorf("recipient length %d out of range [%d, %d]", len(t.To), MinCoinbaseRecipientLen, MaxCoinbaseRecipientLen)
	}
	if t.Amount == 0 || t.Amount > MaxCoinbaseAmount {
		return fmt.Errorf("amount %d out of range (0, %d]", t.Amount, MaxCoinbaseAmount)
	}
	if t.Signature != "" {
		return fmt.Errorf("coinbase must carry no signature")
	}
	return nil
}

// SatisfiesDifficulty reports whether hash's hex representation begins
// with `difficulty` ASCII '0' characters.
func SatisfiesDifficulty(hash types.Hash, difficulty uint64) bool {
	s := hash.String()
	n := int(difficulty)
	if n > len(s) {
		n = len(s)
	}
	for i := 0; i < n; i++ {
		if s[i] != '0' {
			return false
		}
	}
	return true
}

// Size returns an approximate serialized block size: the header's fixed
// fields plus the sum of transaction sizes.
func (b *Block) Size() int {
	const headerFixedSize = 8 + 8 + 32 + 32 + 8 + 8
	size := headerFixedSize
	for _, t := range b.Transactions {
		size += t.Size()
	}
	return size
}
