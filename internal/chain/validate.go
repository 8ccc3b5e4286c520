package chain

import (
	"fmt"

	"github.com/klingnet-core/klingnet-core/config"
	"github.com/klingnet-core/klingnet-core/internal/consensus"
	"github.com/klingnet-core/klingnet-core/pkg/block"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
)

// ValidateChain checks a candidate block vector against every invariant in
// spec §3/§8: deterministic genesis, linkage, proof-of-work, Merkle roots,
// coinbase reward correctness, and non-coinbase transaction validity
// evaluated against the chain history available at each point.
//
// Unlike validateTransaction (the per-transaction admission path used while
// the chain is live), this bulk check has no wallet view available — it
// runs at boot, before any wallet has been registered, and when replaying a
// candidate chain received from a peer. It verifies signatures directly
// against the sender address, which IS the Ed25519 public key hex-encoded,
// rather than requiring the sender to be a registered wallet.
func ValidateChain(blocks []*block.Block, gen *config.Genesis) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}

	wantGenesis, err := CreateGenesisBlock(gen)
	if err != nil {
		return fmt.Errorf("rebuild expected genesis: %w", err)
	}
	if blocks[0].Hash != wantGenesis.Hash {
		return fmt.Errorf("genesis mismatch: got %s, want %s", blocks[0].Hash, wantGenesis.Hash)
	}

	rules := gen.Protocol.Consensus
	for i, blk := range blocks {
		if i == 0 {
			continue // genesis validated above; bypasses the generic coinbase-amount rule.
		}

		prev := blocks[i-1]
		if blk.Header.PrevHash != prev.Hash {
			return fmt.Errorf("block %d: %w", blk.Header.Index, ErrBadPreviousHash)
		}
		if blk.Header.Index != prev.Header.Index+1 {
			return fmt.Errorf("block %d: %w", blk.Header.Index, ErrBadIndex)
		}
		if blk.Header.Timestamp < prev.Header.Timestamp {
			return fmt.Errorf("block %d: %w", blk.Header.Index, ErrNonMonotonicTimestamp)
		}
		if err := blk.Validate(rules.MaxTransactionsPerBlock, rules.MaxBlockSizeBytes); err != nil {
			return fmt.Errorf("block %d: %w", blk.Header.Index, err)
		}
		if err := consensus.VerifyHeader(blk); err != nil {
			return fmt.Errorf("block %d: %w", blk.Header.Index, err)
		}
		if err := validateCoinbaseReward(blk); err != nil {
			return fmt.Errorf("block %d: %w", blk.Header.Index, err)
		}

		for _, t := range blk.Transactions {
			if t.IsCoinbase() || t.Kind() == tx.SenderStaking {
				continue
			}
			if err := validateSignatureOnly(t); err != nil {
				return fmt.Errorf("block %d tx %s: %w", blk.Header.Index, t.ID, err)
			}
			if calculateBalance(blocks[:i], t.From) < t.Amount+t.Fee {
				return fmt.Errorf("block %d tx %s: %w", blk.Header.Index, t.ID, ErrInsufficientFunds)
			}
			if transactionConflictsWithHistory(blocks[:i], t) {
				return fmt.Errorf("block %d tx %s: %w", blk.Header.Index, t.ID, ErrDoubleSpend)
			}
		}
	}
	return nil
}

// validateCoinbaseReward checks that blk's coinbase (if any) pays exactly
// subsidy(index) + sum of the block's other fees, per spec §8.
func validateCoinbaseReward(blk *block.Block) error {
	var coinbase *tx.Transaction
	var others []*tx.Transaction
	for _, t := range blk.Transactions {
		if t.IsCoinbase() {
			coinbase = t
		} else {
			others = append(others, t)
		}
	}
	if coinbase == nil {
		return nil
	}
	want := Subsidy(blk.Header.Index) + tx.SumFees(others)
	if coinbase.Amount != want {
		return fmt.Errorf("coinbase pays %d, want subsidy+fees %d", coinbase.Amount, want)
	}
	return nil
}

// validateSignatureOnly checks structural validity, a well-formed sender
// address, and that the transaction's signature verifies against it. It
// does not check chain-balance (ValidateChain does that separately) or the
// known-sender requirement, since ValidateChain's bulk replay has no wallet
// view to check against.
func validateSignatureOnly(t *tx.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := t.ValidateSenderAddress(); err != nil {
		return err
	}
	if err := t.ValidateRecipientAddress(); err != nil {
		return err
	}
	if !t.Verify(t.From.Bytes()) {
		return ErrBadSignature
	}
	return nil
}

// transactionConflictsWithHistory reports whether any transaction in blocks
// trips the same-sender/different-id/same-amount/same-timestamp double-spend
// heuristic against t. Per design notes this heuristic is a fast rejection
// pass, not the authoritative safety boundary — the cumulative balance check
// in validateTransaction is.
func transactionConflictsWithHistory(blocks []*block.Block, t *tx.Transaction) bool {
	for _, b := range blocks {
		for _, other := range b.Transactions {
			if tx.SameSenderDifferentIDSameAmountAndTime(t, other) {
				return true
			}
		}
	}
	return false
}

// validateTransaction checks a non-coinbase, non-staking transaction for
// admission into a new block per spec §4.C: structural validity, a
// registered sender known to view, a verifying signature, sufficient
// chain-derived balance, and the double-spend heuristic against chain
// history. Callers must hold c.mu.
func (c *Chain) validateTransaction(t *tx.Transaction, view WalletView) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := t.ValidateSenderAddress(); err != nil {
		return err
	}
	if err := t.ValidateRecipientAddress(); err != nil {
		return err
	}

	if view == nil {
		return ErrUnknownSender
	}
	pub, ok := view.PublicKey(t.From)
	if !ok {
		return ErrUnknownSender
	}
	if !t.Verify(pub) {
		return ErrBadSignature
	}

	balance := calculateBalance(c.blocks, t.From)
	if balance < t.Amount+t.Fee {
		return ErrInsufficientFunds
	}

	if transactionConflictsWithHistory(c.blocks, t) {
		return ErrDoubleSpend
	}
	return nil
}
