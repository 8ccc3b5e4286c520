package config

import "testing"

func TestGenesis_Validate_MainnetValid(t *testing.T) {
	g := MainnetGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("mainnet genesis should be valid: %v", err)
	}
}

func TestGenesis_Validate_TestnetValid(t *testing.T) {
	g := TestnetGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("testnet genesis should be valid: %v", err)
	}
}

func TestGenesis_Validate_MissingChainID(t *testing.T) {
	g := MainnetGenesis()
	g.ChainID = ""
	if err := g.Validate(); err == nil {
		t.Error("expected error for missing chain_id")
	}
}

func TestGenesis_Validate_MissingRecipient(t *testing.T) {
	g := MainnetGenesis()
	g.GenesisRecipient = ""
	if err := g.Validate(); err == nil {
		t.Error("expected error for missing genesis_recipient")
	}
}

func TestGenesis_Validate_ZeroDifficulty(t *testing.T) {
	g := MainnetGenesis()
	g.Protocol.Consensus.InitialDifficulty = 0
	if err := g.Validate(); err == nil {
		t.Error("expected error for zero initial_difficulty")
	}
}

func TestGenesis_Validate_ZeroBlockTime(t *testing.T) {
	g := MainnetGenesis()
	g.Protocol.Consensus.TargetBlockTime = 0
	if err := g.Validate(); err == nil {
		t.Error("expected error for zero target_block_time")
	}
}

func TestGenesisFor_Mainnet(t *testing.T) {
	g := GenesisFor(Mainnet)
	if g.ChainID != "klingnet-mainnet-1" {
		t.Errorf("GenesisFor(Mainnet) chain id = %q", g.ChainID)
	}
}

func TestGenesisFor_Testnet(t *testing.T) {
	g := GenesisFor(Testnet)
	if g.ChainID != "klingnet-testnet-1" {
		t.Errorf("GenesisFor(Testnet) chain id = %q", g.ChainID)
	}
}

func TestGenesis_Hash_Deterministic(t *testing.T) {
	g1 := MainnetGenesis()
	g2 := MainnetGenesis()
	h1, err := g1.Hash()
	if err != nil {
		t.Fatal(err)
	}
	h2, err := g2.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("identical genesis configs should hash identically")
	}
}
