package chain

import "github.com/klingnet-core/klingnet-core/pkg/types"

// State is a point-in-time snapshot of the chain tip, handed to external
// collaborators that need tip identity without taking the chain lock
// themselves (e.g. the balance cache's version guard).
type State struct {
	Height       uint64
	TipHash      types.Hash
	TipTimestamp int64
}

// IsGenesis reports whether no blocks have been processed yet.
func (s *State) IsGenesis() bool {
	return s.Height == 0 && s.TipHash.IsZero()
}
