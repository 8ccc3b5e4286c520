package tx

import (
	"fmt"

	"github.com/klingnet-core/klingnet-core/pkg/crypto"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// Builder constructs a transaction incrementally before signing.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder with the given id and
// creation timestamp (seconds since epoch).
func NewBuilder(id string, timestamp int64) *Builder {
	return &Builder{
		tx: &Transaction{ID: id, Timestamp: timestamp},
	}
}

// From sets the sender address.
func (b *Builder) From(addr types.Address) *Builder {
	b.tx.From = addr
	return b
}

// To sets the recipient address.
func (b *Builder) To(addr types.Address) *Builder {
	b.tx.To = addr
	return b
}

// Amount sets the transfer amount.
func (b *Builder) Amount(amount uint64) *Builder {
	b.tx.Amount = amount
	return b
}

// Fee sets the transaction fee.
func (b *Builder) Fee(fee uint64) *Builder {
	b.tx.Fee = fee
	return b
}

// Data attaches an opaque data payload.
func (b *Builder) Data(data []byte) *Builder {
	b.tx.Data = data
	return b
}

// Sign signs the transaction with the provided private key.
func (b *Builder) Sign(key *crypto.PrivateKey) error {
	if err := b.tx.Sign(key); err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	return nil
}

// Build returns the constructed transaction. Does not validate; callers
// should run tx.IsStructurallyValid() or the chain engine's full admission
// checks separately.
func (b *Builder) Build() *Transaction {
	return b.tx
}
