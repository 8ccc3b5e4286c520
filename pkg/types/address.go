package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// AddressSize is the length of an address in bytes: a raw Ed25519 public key.
const AddressSize = 32

// Address is a hex-encoded Ed25519 public key. Unlike a derived key hash, the
// address IS the verifying key, so a transaction can be checked against its
// sender address directly with no lookup table.
type Address string

// IsZero returns true if the address is the empty string.
func (a Address) IsZero() bool {
	return a == ""
}

// String returns the address's hex form.
func (a Address) String() string {
	return string(a)
}

// Bytes decodes the address into the raw public key bytes it encodes.
// Callers should call Validate first; Bytes returns nil on malformed input.
func (a Address) Bytes() []byte {
	b, err := hex.DecodeString(string(a))
	if err != nil || len(b) != AddressSize {
		return nil
	}
	return b
}

// Validate reports whether a is well-formed: exactly AddressSize bytes of hex.
func (a Address) Validate() error {
	if len(a) != AddressSize*2 {
		return fmt.Errorf("address must be %d hex characters, got %d", AddressSize*2, len(a))
	}
	if _, err := hex.DecodeString(string(a)); err != nil {
		return fmt.Errorf("invalid address hex: %w", err)
	}
	return nil
}

// MarshalJSON encodes the address as its hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// UnmarshalJSON decodes a hex string into an address. Validation is left to
// the caller via Validate, since reserved sender sentinels (see pkg/tx) are
// not valid public-key hex but are still legal Address values on the wire.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = Address(s)
	return nil
}

// AddressFromPublicKey hex-encodes a raw Ed25519 public key into an Address.
func AddressFromPublicKey(pub []byte) Address {
	return Address(hex.EncodeToString(pub))
}
