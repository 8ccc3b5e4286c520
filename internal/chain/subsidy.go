package chain

// Subsidy constants per spec §4.C: base block reward, the halving interval,
// and the halving-count cap, Bitcoin-style.
const (
	BaseSubsidy     = 50
	HalvingInterval = 210_000
	MaxHalvings     = 64
)

// Subsidy returns the block reward for a block mined when the chain (before
// that block is appended) has chainLength blocks already in it:
//
//	subsidy(n) = 50 >> min(n/210_000, 64)
func Subsidy(chainLength uint64) uint64 {
	halvings := chainLength / HalvingInterval
	if halvings > MaxHalvings {
		halvings = MaxHalvings
	}
	return BaseSubsidy >> halvings
}
