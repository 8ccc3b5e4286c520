package tx

import (
	"errors"
	"fmt"
)

// Structural validation errors. Admission-level errors (unknown sender,
// bad signature, insufficient funds, double spend) are the chain engine's
// responsibility, since they require chain and mempool state this package
// does not have access to.
var (
	ErrEmptyID        = errors.New("transaction id is empty")
	ErrEmptySender    = errors.New("transaction sender is empty")
	ErrEmptyRecipient = errors.New("transaction recipient is empty")
	ErrZeroAmount     = errors.New("transaction amount must be positive")
	ErrBadAddress     = errors.New("malformed address")
)

// Validate checks field-level structural validity: non-empty id, sender,
// and recipient, plus a positive amount. It does not check signatures,
// balances, or chain history — see internal/chain for full admission.
func (tx *Transaction) Validate() error {
	if tx.ID == "" {
		return ErrEmptyID
	}
	if tx.From == "" {
		return ErrEmptySender
	}
	if tx.To == "" {
		return ErrEmptyRecipient
	}
	if tx.Amount == 0 {
		return ErrZeroAmount
	}
	return nil
}

// ValidateRecipientAddress checks that the recipient is a well-formed
// address. The sender is checked separately since coinbase and staking
// transactions use reserved non-address sentinels (see SenderKind).
func (tx *Transaction) ValidateRecipientAddress() error {
	if err := tx.To.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	return nil
}

// ValidateSenderAddress checks that the sender is a well-formed address,
// for normal (non-coinbase, non-staking) transactions.
func (tx *Transaction) ValidateSenderAddress() error {
	if tx.Kind() != SenderNormal {
		return nil
	}
	if err := tx.From.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	return nil
}

// SameSenderDifferentIDSameAmountAndTime is the double-spend heuristic
// shared by the mempool and the chain engine's historical scan: two
// transactions are suspect if they share a sender but not an id, and
// agree on amount and timestamp. Per design notes this is a fast-path
// rejection, not the authoritative safety boundary — the cumulative
// balance check is.
func SameSenderDifferentIDSameAmountAndTime(a, b *Transaction) bool {
	return a.From == b.From &&
		a.ID != b.ID &&
		a.Amount == b.Amount &&
		a.Timestamp == b.Timestamp
}
