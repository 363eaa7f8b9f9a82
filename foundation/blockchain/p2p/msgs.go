// Package p2p implements the peer-to-peer protocol: the message set, a
// TCP server that dispatches inbound frames, and a client that delivers
// framed messages to peers with retries.
package p2p

import (
	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/serialize"
)

// ChunkSize is the maximum number of blocks returned for one GetBlocksMsg.
const ChunkSize = 50

func init() {
	serialize.Register("GetBlocksMsg", GetBlocksMsg{})
	serialize.Register("InvMsg", InvMsg{})
	serialize.Register("GetUTXOsMsg", GetUTXOsMsg{})
	serialize.Register("GetMempoolMsg", GetMempoolMsg{})
	serialize.Register("GetActiveChainMsg", GetActiveChainMsg{})
	serialize.Register("AddPeerMsg", AddPeerMsg{})
}

// GetBlocksMsg asks a peer for the run of active chain blocks following
// the specified block id.
type GetBlocksMsg struct {
	FromBlockID string `json:"from_blockid"`
}

// InvMsg carries a batch of blocks in answer to a GetBlocksMsg.
type InvMsg struct {
	Blocks []database.Block `json:"blocks"`
}

// AddPeerMsg announces a hostname to be added to the receiver's peer set.
type AddPeerMsg struct {
	PeerHostname string `json:"peer_hostname"`
}

// GetUTXOsMsg requests the full UTXO set.
type GetUTXOsMsg struct{}

// GetMempoolMsg requests the list of pending transaction ids.
type GetMempoolMsg struct{}

// GetActiveChainMsg requests the full active chain.
type GetActiveChainMsg struct{}
