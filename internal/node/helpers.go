package node

import (
	"fmt"

	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// resolveCoinbase validates the configured mining coinbase address. Unlike
// the teacher's validator-key-derived fallback (this chain has no PoA
// validator identity), a coinbase address is always required explicitly
// when mining is enabled.
func resolveCoinbase(coinbaseStr string) (types.Address, error) {
	addr := types.Address(coinbaseStr)
	if err := addr.Validate(); err != nil {
		return "", fmt.Errorf("mining.enabled requires a valid coinbase address: %w", err)
	}
	return addr, nil
}

// formatDifficulty returns a human-readable difficulty string (e.g. "1.05M"),
// used for log output.
func formatDifficulty(d uint64) string {
	switch {
	case d >= 1_000_000_000_000:
		return fmt.Sprintf("%.2fT", float64(d)/1_000_000_000_000)
	case d >= 1_000_000_000:
		return fmt.Sprintf("%.2fG", float64(d)/1_000_000_000)
	case d >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(d)/1_000_000)
	case d >= 1_000:
		return fmt.Sprintf("%.2fK", float64(d)/1_000)
	default:
		return fmt.Sprintf("%d", d)
	}
}
