package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/klingnet-core/klingnet-core/pkg/crypto"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// =============================================================================
// Protocol Rules (immutable, defined in genesis)
// These MUST match across all nodes or consensus breaks.
// =============================================================================

// Genesis holds the genesis block configuration and protocol rules. Immutable
// after chain launch — changing it requires a hard fork.
type Genesis struct {
	ChainID   string `json:"chain_id"`
	ChainName string `json:"chain_name"`
	Symbol    string `json:"symbol,omitempty"`

	Timestamp int64  `json:"timestamp"`
	ExtraData string `json:"extra_data,omitempty"`

	// GenesisRecipient receives the zero-amount genesis coinbase-like
	// transaction per spec §4.C ("recipient 'genesis'").
	GenesisRecipient string `json:"genesis_recipient"`

	Protocol ProtocolConfig `json:"protocol"`
}

// ProtocolConfig holds consensus-critical rules. All nodes MUST agree on
// these values — spec §6's enumerated configuration list.
type ProtocolConfig struct {
	Consensus ConsensusRules `json:"consensus"`
}

// ConsensusRules defines how blocks are produced, validated, and retargeted.
type ConsensusRules struct {
	InitialDifficulty uint64 `json:"initial_difficulty"`  // difficulty
	TargetBlockTime   int64  `json:"target_block_time"`   // target_block_time (s)
	RetargetInterval  int    `json:"retarget_interval"`   // retarget_interval (blocks)

	MaxTransactionsPerBlock int   `json:"max_transactions_per_block"`
	MaxBlockSizeBytes       int   `json:"max_block_size_bytes"`
	MempoolMaxSize          int   `json:"mempool_max_size"`
}

// =============================================================================
// Pre-defined genesis configurations
// =============================================================================

// MainnetGenesis returns the mainnet genesis configuration.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID:          "klingnet-mainnet-1",
		ChainName:        "Klingnet Mainnet",
		Symbol:           "KGX",
		Timestamp:        1577836800, // 2020-01-01T00:00:00Z, fixed and deterministic
		ExtraData:        "Klingnet Genesis",
		GenesisRecipient: "genesis",
		Protocol: ProtocolConfig{
			Consensus: ConsensusRules{
				InitialDifficulty:       1,
				TargetBlockTime:         60,
				RetargetInterval:        10,
				MaxTransactionsPerBlock: 1000,
				MaxBlockSizeBytes:       1_000_000,
				MempoolMaxSize:          1000,
			},
		},
	}
}

// TestnetGenesis returns the testnet genesis configuration.
func TestnetGenesis() *Genesis {
	g := MainnetGenesis()
	g.ChainID = "klingnet-testnet-1"
	g.ChainName = "Klingnet Testnet"
	g.ExtraData = "Klingnet Testnet Genesis"
	return g
}

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Testnet:
		return TestnetGenesis()
	default:
		return MainnetGenesis()
	}
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}

	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}
	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks that the genesis configuration is structurally sound.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if g.GenesisRecipient == "" {
		return fmt.Errorf("genesis_recipient is required")
	}
	c := g.Protocol.Consensus
	if c.InitialDifficulty == 0 {
		return fmt.Errorf("initial_difficulty must be positive")
	}
	if c.TargetBlockTime <= 0 {
		return fmt.Errorf("target_block_time must be positive")
	}
	if c.RetargetInterval < 0 {
		return fmt.Errorf("retarget_interval must be non-negative")
	}
	if c.MaxTransactionsPerBlock <= 0 {
		return fmt.Errorf("max_transactions_per_block must be positive")
	}
	if c.MaxBlockSizeBytes <= 0 {
		return fmt.Errorf("max_block_size_bytes must be positive")
	}
	if c.MempoolMaxSize <= 0 {
		return fmt.Errorf("mempool_max_size must be positive")
	}
	return nil
}

// Hash returns a SHA-256 hash of the genesis configuration's JSON encoding.
// The P2P handshake does not use it; peers compare block counts and tip
// hashes instead (see internal/p2p's Node.Connect).
func (g *Genesis) Hash() (types.Hash, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
