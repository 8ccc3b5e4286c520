package wallet

import "testing"

func TestDeriveAccount_Deterministic(t *testing.T) {
	seed := testSeedBytes(t)

	a1, err := DeriveAccount(seed)
	if err != nil {
		t.Fatalf("DeriveAccount: %v", err)
	}
	a2, err := DeriveAccount(seed)
	if err != nil {
		t.Fatalf("DeriveAccount: %v", err)
	}
	if a1.Keypair.Address != a2.Keypair.Address {
		t.Error("deriving from the same seed twice should yield the same address")
	}
}

func TestDeriveAccount_DifferentSeedsDifferentAddresses(t *testing.T) {
	mnemonic, err := GenerateMnemonic()
	if err != nil {
		t.Fatalf("GenerateMnemonic: %v", err)
	}
	other, err := SeedFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic: %v", err)
	}

	a1, err := DeriveAccount(testSeedBytes(t))
	if err != nil {
		t.Fatalf("DeriveAccount: %v", err)
	}
	a2, err := DeriveAccount(other)
	if err != nil {
		t.Fatalf("DeriveAccount: %v", err)
	}
	if a1.Keypair.Address == a2.Keypair.Address {
		t.Error("distinct seeds should derive distinct addresses")
	}
}

func TestDeriveAccount_SeedTooShort(t *testing.T) {
	if _, err := DeriveAccount(make([]byte, 16)); err == nil {
		t.Error("expected an error for a seed shorter than 32 bytes")
	}
}

func TestDeriveAccount_SignAndVerify(t *testing.T) {
	account, err := DeriveAccount(testSeedBytes(t))
	if err != nil {
		t.Fatalf("DeriveAccount: %v", err)
	}
	msg := []byte("hello")
	sig, err := account.Keypair.Private.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) == 0 {
		t.Error("expected a non-empty signature")
	}
}
