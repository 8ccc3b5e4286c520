package tx

// EstimateFee returns the minimum fee for a transaction of the given
// serialized size at the given fee rate (base units per byte).
func EstimateFee(size int, feeRate uint64) uint64 {
	return uint64(size) * feeRate
}

// RequiredFee returns the exact minimum fee for a built transaction at the
// given fee rate (base units per byte of Size()).
func RequiredFee(transaction *Transaction, feeRate uint64) uint64 {
	return uint64(transaction.Size()) * feeRate
}

// SumFees returns the total fee across a set of transactions, used by the
// chain engine when computing a coinbase's total reward.
func SumFees(txs []*Transaction) uint64 {
	var total uint64
	for _, t := range txs {
		total += t.Fee
	}
	return total
}
