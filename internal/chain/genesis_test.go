package chain

import (
	"testing"

	"github.com/klingnet-core/klingnet-core/config"
	"github.com/klingnet-core/klingnet-core/internal/consensus"
)

func TestCreateGenesisBlock_Deterministic(t *testing.T) {
	gen := config.MainnetGenesis()

	a, err := CreateGenesisBlock(gen)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	b, err := CreateGenesisBlock(gen)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if a.Hash != b.Hash {
		t.Errorf("genesis hash not deterministic: %s != %s", a.Hash, b.Hash)
	}
}

func TestCreateGenesisBlock_ZeroAmountCoinbase(t *testing.T) {
	gen := config.MainnetGenesis()
	blk, err := CreateGenesisBlock(gen)
	if err != nil {
		t.Fatal(err)
	}
	if len(blk.Transactions) != 1 {
		t.Fatalf("expected exactly one genesis transaction, got %d", len(blk.Transactions))
	}
	coinbase := blk.Transactions[0]
	if coinbase.Amount != 0 {
		t.Errorf("genesis coinbase amount = %d, want 0", coinbase.Amount)
	}
	if !coinbase.IsCoinbase() {
		t.Errorf("genesis transaction should be a coinbase sender")
	}
	if string(coinbase.To) != gen.GenesisRecipient {
		t.Errorf("genesis recipient = %s, want %s", coinbase.To, gen.GenesisRecipient)
	}
}

func TestCreateGenesisBlock_SatisfiesInitialDifficulty(t *testing.T) {
	gen := config.MainnetGenesis()
	blk, err := CreateGenesisBlock(gen)
	if err != nil {
		t.Fatal(err)
	}
	if err := consensus.VerifyHeader(blk); err != nil {
		t.Errorf("genesis block fails header verification: %v", err)
	}
	if blk.Header.Difficulty != gen.Protocol.Consensus.InitialDifficulty {
		t.Errorf("genesis difficulty = %d, want %d", blk.Header.Difficulty, gen.Protocol.Consensus.InitialDifficulty)
	}
}

func TestCreateGenesisBlock_NilConfig(t *testing.T) {
	if _, err := CreateGenesisBlock(nil); err == nil {
		t.Error("expected error for nil genesis config")
	}
}

func TestCreateGenesisBlock_DifferentExtraDataDiffersHash(t *testing.T) {
	a := config.MainnetGenesis()
	b := config.MainnetGenesis()
	b.ExtraData = "a different message"

	blkA, err := CreateGenesisBlock(a)
	if err != nil {
		t.Fatal(err)
	}
	blkB, err := CreateGenesisBlock(b)
	if err != nil {
		t.Fatal(err)
	}
	if blkA.Hash == blkB.Hash {
		t.Error("differing extra data should not produce identical genesis hashes")
	}
}
