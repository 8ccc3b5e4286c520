package p2p

import (
	"github.com/klingnet-core/klingnet-core/pkg/block"
	"github.com/klingnet-core/klingnet-core/pkg/tx"
	"github.com/klingnet-core/klingnet-core/pkg/types"
)

// MessageType tags which variant of Envelope is populated.
type MessageType string

const (
	MsgPing           MessageType = "ping"
	MsgPong           MessageType = "pong"
	MsgGetBlocks      MessageType = "get_blocks"
	MsgBlocks         MessageType = "blocks"
	MsgNewBlock       MessageType = "new_block"
	MsgNewTransaction MessageType = "new_transaction"
	MsgGetPeers       MessageType = "get_peers"
	MsgPeers          MessageType = "peers"
	MsgVersion        MessageType = "version"
)

// ProtocolVersion is advertised in Version messages.
const ProtocolVersion = 1

// Envelope is the tagged sum type carried over the wire: Type selects which
// of the payload fields is meaningful, the rest are left nil and omitted.
type Envelope struct {
	Type MessageType `json:"type"`

	Version     *VersionPayload `json:"version,omitempty"`
	Blocks      []*block.Block  `json:"blocks,omitempty"`
	Block       *block.Block    `json:"block,omitempty"`
	Transaction *tx.Transaction `json:"transaction,omitempty"`
	Peers       []string        `json:"peers,omitempty"`
}

// VersionPayload is exchanged during the handshake and in reply to Version.
type VersionPayload struct {
	ProtocolVersion uint32     `json:"version"`
	BlockCount      uint64     `json:"block_count"`
	LatestHash      types.Hash `json:"latest_hash"`
}

func pingEnvelope() *Envelope { return &Envelope{Type: MsgPing} }
func pongEnvelope() *Envelope { return &Envelope{Type: MsgPong} }
func getBlocksEnvelope() *Envelope { return &Envelope{Type: MsgGetBlocks} }

func blocksEnvelope(blocks []*block.Block) *Envelope {
	return &Envelope{Type: MsgBlocks, Blocks: blocks}
}

func newBlockEnvelope(b *block.Block) *Envelope {
	return &Envelope{Type: MsgNewBlock, Block: b}
}

func newTransactionEnvelope(t *tx.Transaction) *Envelope {
	return &Envelope{Type: MsgNewTransaction, Transaction: t}
}

func getPeersEnvelope() *Envelope { return &Envelope{Type: MsgGetPeers} }

func peersEnvelope(peers []string) *Envelope {
	return &Envelope{Type: MsgPeers, Peers: peers}
}

func versionEnvelope(v VersionPayload) *Envelope {
	return &Envelope{Type: MsgVersion, Version: &v}
}
