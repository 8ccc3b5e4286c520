package chain

import (
	"testing"

	"github.com/klingnet-core/klingnet-core/pkg/crypto"
)

func TestResolveConflict_ShorterCandidateIgnored(t *testing.T) {
	c := newTestChain(t)
	miner, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := c.MineBlockWithReward(miner.Address, nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	shorter := c.Snapshot()[:1] // genesis only

	replaced, err := c.ResolveConflict(shorter)
	if err != nil {
		t.Fatalf("ResolveConflict: %v", err)
	}
	if replaced {
		t.Error("a shorter candidate must never replace the local chain")
	}
	if c.Len() != 3 {
		t.Errorf("local chain length changed to %d, want unchanged 3", c.Len())
	}
}

func TestResolveConflict_InvalidLongerCandidateRejected(t *testing.T) {
	c := newTestChain(t)
	miner, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.MineBlockWithReward(miner.Address, nil, nil); err != nil {
		t.Fatal(err)
	}

	other, err := New(t.TempDir(), testGenesis())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := other.MineBlockWithReward(miner.Address, nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	candidate := other.Snapshot()
	candidate[2].Header.PrevHash[0] ^= 0xff // break linkage, still structurally longer

	replaced, err := c.ResolveConflict(candidate)
	if err == nil {
		t.Error("expected ResolveConflict to surface the validation error")
	}
	if replaced {
		t.Error("an invalid longer candidate must never replace the local chain")
	}
	if c.Len() != 2 {
		t.Errorf("local chain length changed to %d, want unchanged 2", c.Len())
	}
}
