package state

import (
	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/p2p"
	"github.com/tinychain/tinychain/foundation/blockchain/peer"
)

// The state implements p2p.Handler so the TCP server can deliver inbound
// messages straight into the engine.

// HandleGetBlocks answers a peer's sync request with the next run of
// active chain blocks after their reported tip.
func (s *State) HandleGetBlocks(msg p2p.GetBlocksMsg, fromHost string) {
	s.mu.Lock()

	// Height one past the requested block; an unknown anchor restarts
	// the peer after genesis.
	height := 1
	if _, idx, found := locateBlockInChain(msg.FromBlockID, s.activeChain); found {
		height = idx + 1
	}

	end := height + p2p.ChunkSize
	if end > len(s.activeChain) {
		end = len(s.activeChain)
	}

	var blocks []database.Block
	if height < end {
		blocks = make([]database.Block, end-height)
		copy(blocks, s.activeChain[height:end])
	}
	s.mu.Unlock()

	s.evHandler("state: p2p: sending %d blocks to %s", len(blocks), fromHost)
	go s.client.Send(fromHost, p2p.InvMsg{Blocks: blocks})
}

// HandleInv connects any unknown blocks from a sync batch. A batch with
// nothing new means initial block download has caught up; otherwise the
// next batch is requested from the new tip.
func (s *State) HandleInv(msg p2p.InvMsg, fromHost string) {
	var novel bool
	for _, block := range msg.Blocks {
		s.mu.Lock()
		_, _, _, seen := s.locateBlock(block.ID())
		if !seen {
			novel = true
			s.connectBlock(block, false)
		}
		s.mu.Unlock()
	}

	if !novel {
		s.MarkIBDDone()
		return
	}

	tip, ok := s.RetrieveTip()
	if !ok {
		return
	}

	go s.client.Send(fromHost, p2p.GetBlocksMsg{FromBlockID: tip.ID()})
}

// HandleTransaction admits a relayed transaction to the mempool.
func (s *State) HandleTransaction(tx database.Transaction) {
	s.AddTxnToMempool(tx)
}

// HandleBlock connects a relayed block.
func (s *State) HandleBlock(block database.Block) {
	s.ConnectBlock(block)
}

// HandleAddPeer records a newly announced peer hostname.
func (s *State) HandleAddPeer(host string) {
	if s.knownPeers.Add(peer.New(host)) {
		s.evHandler("state: p2p: added peer %s", host)
	}
}

// HandleGetUTXOs returns the full UTXO set as outpoint/output pairs.
func (s *State) HandleGetUTXOs() any {
	utxos := s.utxoSet.Copy()

	pairs := make([]any, 0, len(utxos))
	for op, utxo := range utxos {
		pairs = append(pairs, []any{op, utxo})
	}

	return pairs
}

// HandleGetMempool returns the pending transaction ids.
func (s *State) HandleGetMempool() any {
	ids := s.mempool.TxIDs()

	payload := make([]any, len(ids))
	for i, id := range ids {
		payload[i] = id
	}

	return payload
}

// HandleGetActiveChain returns the full active chain.
func (s *State) HandleGetActiveChain() any {
	return s.RetrieveActiveChain()
}

// RequestInitialBlocks kicks off initial block download by asking a
// random peer for the blocks after our tip.
func (s *State) RequestInitialBlocks() {
	tip, ok := s.RetrieveTip()
	if !ok {
		return
	}

	if err := s.client.Send("", p2p.GetBlocksMsg{FromBlockID: tip.ID()}); err != nil {
		s.evHandler("state: p2p: initial block request: %s", err)
	}
}

// AnnounceSelf asks every known peer to add this node to their peer set.
func (s *State) AnnounceSelf() {
	if s.host == "" {
		return
	}

	for _, p := range s.knownPeers.Copy(s.host) {
		go s.client.Send(p.Host, p2p.AddPeerMsg{PeerHostname: s.host})
	}
}
