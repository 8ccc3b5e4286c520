// Package tx defines the account-model transaction record and its
// signing/validation operations.
package tx

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/klingnet-core/klingnet-core/pkg/crypto"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// Reserved sender sentinels. CoinbaseSender marks a block's subsidy
// transaction; StakingSender marks a system unstake transaction admitted
// without further checks as a hook for an external staking collaborator.
const (
	CoinbaseSender = "0"
	StakingSender  = "STAKING"
)

// SenderKind classifies a transaction's sender field. Representing the
// reserved sentinels as an enum keeps callers from matching "0" and
// "STAKING" as ad hoc magic strings scattered through the chain engine.
type SenderKind int

const (
	// SenderNormal is an ordinary wallet-to-wallet transfer.
	SenderNormal SenderKind = iota
	// SenderCoinbase is the block subsidy transaction.
	SenderCoinbase
	// SenderStaking is a system unstake transaction, accepted without
	// further validation as an extension point for a staking collaborator.
	SenderStaking
)

// Kind classifies the transaction by its sender field.
func (tx *Transaction) Kind() SenderKind {
	switch string(tx.From) {
	case CoinbaseSender:
		return SenderCoinbase
	case StakingSender:
		return SenderStaking
	default:
		return SenderNormal
	}
}

// IsCoinbase reports whether tx is the block's subsidy transaction.
func (tx *Transaction) IsCoinbase() bool {
	return tx.Kind() == SenderCoinbase
}

// Transaction is a single transfer of value from one address to another,
// account-model: there is no UTXO set, balances are derived by folding the
// chain (see internal/chain.CalculateBalance).
type Transaction struct {
	ID        string       `json:"id"`
	From      types.Address `json:"from"`
	To        types.Address `json:"to"`
	Amount    uint64       `json:"amount"`
	Fee       uint64       `json:"fee"`
	Data      []byte       `json:"data,omitempty"`
	Timestamp int64        `json:"timestamp"`
	Signature string       `json:"signature,omitempty"`
}

// Hash computes the transaction's identifying hash: SHA-256 over the
// canonical concatenation of (id, from, to, amount, fee, data, timestamp).
// This is a pure function of the transaction's field contents and excludes
// the signature itself, since the signature is computed over this hash.
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.signingBytes())
}

func (tx *Transaction) signingBytes() []byte {
	var buf []byte
	buf = append(buf, []byte(tx.ID)...)
	buf = append(buf, []byte(tx.From)...)
	buf = append(buf, []byte(tx.To)...)
	buf = binary.BigEndian.AppendUint64(buf, tx.Amount)
	buf = binary.BigEndian.AppendUint64(buf, tx.Fee)
	buf = append(buf, tx.Data...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(tx.Timestamp))
	return buf
}

// IsStructurallyValid checks field-level validity only: non-empty sender
// and recipient, and a positive amount. Coinbase-specific checks live in
// the chain engine (internal/chain), since they depend on block context
// (the subsidy schedule and fee total).
func (tx *Transaction) IsStructurallyValid() bool {
	if tx.ID == "" || tx.From == "" || tx.To == "" {
		return false
	}
	if tx.Amount == 0 {
		return false
	}
	return true
}

// Verify reports whether tx.Signature verifies against tx.Hash() under the
// given raw Ed25519 public key.
func (tx *Transaction) Verify(pubKey []byte) bool {
	if tx.Signature == "" {
		return false
	}
	sig, err := hex.DecodeString(tx.Signature)
	if err != nil {
		return false
	}
	h := tx.Hash()
	return crypto.VerifySignature(h[:], sig, pubKey)
}

// Sign computes tx.Hash() and sets tx.Signature to its hex-encoded Ed25519
// signature under signer.
func (tx *Transaction) Sign(signer crypto.Signer) error {
	h := tx.Hash()
	sig, err := signer.Sign(h[:])
	if err != nil {
		return err
	}
	tx.Signature = hex.EncodeToString(sig)
	return nil
}

// Size returns an approximate serialized size in bytes, used for the
// per-block byte-size cap.
func (tx *Transaction) Size() int {
	return len(tx.ID) + len(tx.From) + len(tx.To) + len(tx.Data) + len(tx.Signature) + 8 + 8 + 8
}
