package wallet

// Balance is a point-in-time view of an account's holdings: Confirmed is
// the chain-derived balance (internal/chain.CalculateBalance folded over
// mined blocks); Pending is the amount already committed by the account's
// own transactions still sitting in the mempool
// (internal/mempool.Pool.PendingSpent), not yet reflected on-chain.
type Balance struct {
	Confirmed uint64
	Pending   uint64
}

// Available returns the balance an account can still spend: confirmed
// minus whatever it has already committed to pending transactions.
func (b Balance) Available() uint64 {
	if b.Pending >= b.Confirmed {
		return 0
	}
	return b.Confirmed - b.Pending
}
