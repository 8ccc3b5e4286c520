package chain

import (
	"github.com/klingnet-core/klingnet-core/pkg/block"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// CalculateBalance folds the entire chain to derive addr's current balance,
// per spec §4.C: a coinbase payout to addr adds its amount; a non-coinbase
// transaction from addr subtracts amount+fee (saturating at zero); a
// non-coinbase transaction to addr adds its amount.
func (c *Chain) CalculateBalance(addr types.Address) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return calculateBalance(c.blocks, addr)
}

func calculateBalance(blocks []*block.Block, addr types.Address) uint64 {
	var balance uint64
	for _, b := range blocks {
		for _, t := range b.Transactions {
			if t.IsCoinbase() {
				if t.To == addr {
					balance += t.Amount
				}
				continue
			}
			if t.From == addr {
				spend := t.Amount + t.Fee
				if spend > balance {
					balance = 0
				} else {
					balance -= spend
				}
			}
			if t.To == addr {
				balance += t.Amount
			}
		}
	}
	return balance
}

// GetTransactionsForAddress returns every transaction in chain history
// where addr is the sender or recipient, in chain order.
func (c *Chain) GetTransactionsForAddress(addr types.Address) []*tx.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*tx.Transaction
	for _, b := range c.blocks {
		for _, t := range b.Transactions {
			if t.From == addr || t.To == addr {
				out = append(out, t)
			}
		}
	}
	return out
}
