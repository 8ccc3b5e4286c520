package mempool

import (
	"fmt"

	"github.com/klingnet-core/klingnet-core/pkg/tx"
)

// DefaultMaxTxSize is the maximum transaction size in bytes, per
// Transaction.Size(). There are no per-transaction input/output lists to
// cap in the account model — the per-block caps (max transaction count,
// max block bytes) live in config.ConsensusRules instead.
const DefaultMaxTxSize = 100_000

// Policy defines node-local transaction acceptance rules, distinct from the
// consensus-critical checks in internal/chain: a policy rule can differ
// between nodes without breaking agreement on chain state.
type Policy struct {
	MaxTxSize int
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{MaxTxSize: DefaultMaxTxSize}
}

// Check validates a transaction against policy rules, ahead of the
// consensus-critical checks an orchestrating caller runs via internal/chain.
func (p *Policy) Check(transaction *tx.Transaction) error {
	size := transaction.Size()
	if p.MaxTxSize > 0 && size > p.MaxTxSize {
		return fmt.Errorf("transaction too large: %d bytes, max %d", size, p.MaxTxSize)
	}
	return nil
}
