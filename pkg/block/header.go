package block

import (
	"encoding/binary"

	"github.com/klingnet-core/klingnet-core/pkg/crypto"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// Header contains a block's metadata, everything needed to compute its hash
// except the transaction count (taken from the owning Block).
type Header struct {
	Index      uint64     `json:"index"`
	Timestamp  int64      `json:"timestamp"`
	PrevHash   types.Hash `json:"previous_hash"`
	MerkleRoot types.Hash `json:"merkle_root"`
	Difficulty uint64     `json:"difficulty"`
	Nonce      uint64     `json:"nonce"`
}

// signingBytes returns the canonical byte representation hashed to produce
// the block hash: index, timestamp, merkle_root, previous_hash, nonce,
// transaction_count, in that order.
func (h *Header) signingBytes(txCount int) []byte {
	buf := make([]byte, 0, 8+8+32+32+8+8)
	buf = binary.BigEndian.AppendUint64(buf, h.Index)
	buf = binary.BigEndian.AppendUint64(buf, uint64(h.Timestamp))
	buf = append(buf, h.MerkleRoot[:]...)
	buf = append(buf, h.PrevHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, h.Nonce)
	buf = binary.BigEndian.AppendUint64(buf, uint64(txCount))
	return buf
}

// Hash computes the header's hash given the number of transactions in its
// block. Excludes Difficulty from the hashed bytes per the wire format in
// spec §3 — difficulty is consensus metadata, not part of the commitment.
func (h *Header) Hash(txCount int) types.Hash {
	return crypto.Hash(h.signingBytes(txCount))
}
