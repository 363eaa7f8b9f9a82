package state

import (
	"errors"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
)

// locateBlockInChain finds a block by id in one chain. The returned
// height is the block's index within that chain.
func locateBlockInChain(blockID string, chain []database.Block) (database.Block, int, bool) {
	for height, block := range chain {
		if block.ID() == blockID {
			return block, height, true
		}
	}

	return database.Block{}, 0, false
}

// locateBlock finds a block by id across the active chain and all side
// branches. The returned chain index is 0 for the active chain and k+1
// for side branch k. Assumes the lock is held.
func (s *State) locateBlock(blockID string) (database.Block, int, int, bool) {
	chains := append([][]database.Block{s.activeChain}, s.sideBranches...)

	for chainIdx, chain := range chains {
		if block, height, ok := locateBlockInChain(blockID, chain); ok {
			return block, height, chainIdx, true
		}
	}

	return database.Block{}, 0, 0, false
}

// medianTimePast returns the timestamp of the median block among the last
// n blocks of the active chain, or 0 when the chain is empty. Assumes the
// lock is held.
func (s *State) medianTimePast(n int) int64 {
	if len(s.activeChain) == 0 {
		return 0
	}

	start := len(s.activeChain) - n
	if start < 0 {
		start = 0
	}

	// The median is taken positionally from the reverse-chronological
	// window, counting back from the tip.
	lastN := s.activeChain[start:]
	return lastN[(len(lastN)-1)/2].Timestamp
}

// MedianTimePast is the exported, locking form of medianTimePast.
func (s *State) MedianTimePast(n int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.medianTimePast(n)
}

// =============================================================================

// ConnectBlock accepts a new block into the chain state. The returned
// chain index reports where the block landed; ok is false when the block
// was a duplicate, an orphan, or invalid.
func (s *State) ConnectBlock(block database.Block) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connectBlock(block, false)
}

// connectBlock does the work of accepting a block. During a reorg the
// duplicate search is restricted to the active chain and no recursive
// reorg check runs. Assumes the lock is held.
func (s *State) connectBlock(block database.Block, doingReorg bool) (int, bool) {

	// Already seen this block.
	var seen bool
	if doingReorg {
		_, _, seen = locateBlockInChain(block.ID(), s.activeChain)
	} else {
		_, _, _, seen = s.locateBlock(block.ID())
	}
	if seen {
		s.evHandler("state: connectBlock: ignore already seen block %s", block.ID())
		return 0, false
	}

	chainIdx, err := s.validateBlock(block)
	if err != nil {
		var bve *BlockValidationError
		if errors.As(err, &bve) && bve.ToOrphan != nil {
			s.evHandler("state: connectBlock: saw orphan block %s", block.ID())
			s.orphanBlocks = append(s.orphanBlocks, *bve.ToOrphan)
			return 0, false
		}

		s.evHandler("state: connectBlock: block %s failed validation: %s", block.ID(), err)
		return 0, false
	}

	// A chain index beyond the current branches creates a new side branch.
	if chainIdx != activeChainIdx && len(s.sideBranches) < chainIdx {
		s.evHandler("state: connectBlock: creating a new side branch %d for block %s", chainIdx, block.ID())
		s.sideBranches = append(s.sideBranches, nil)
	}

	s.evHandler("state: connectBlock: connecting block %s to chain %d", block.ID(), chainIdx)

	if chainIdx == activeChainIdx {
		s.activeChain = append(s.activeChain, block)

		height := s.height()
		for _, tx := range block.Txns {
			s.mempool.Delete(tx.ID())

			if !tx.IsCoinbase() {
				for _, txIn := range tx.TxIns {
					s.utxoSet.Remove(txIn.ToSpend.TxID, txIn.ToSpend.TxOutIdx)
				}
			}
			txID := tx.ID()
			for i, txOut := range tx.TxOuts {
				s.utxoSet.Add(txOut, txID, uint32(i), tx.IsCoinbase(), height)
			}
		}
	} else {
		s.sideBranches[chainIdx-1] = append(s.sideBranches[chainIdx-1], block)
	}

	reorged := false
	if !doingReorg {
		reorged = s.reorgIfNecessary()
	}
	if reorged || chainIdx == activeChainIdx {
		s.signalMineInterrupt()
	}

	// Share the accepted block with the network.
	for _, p := range s.knownPeers.Copy(s.host) {
		go s.client.Send(p.Host, block)
	}

	return chainIdx, true
}

// disconnectBlock removes the chain's tip block, returning its
// transactions to the mempool and restoring the UTXO entries it consumed.
// Returns the shortened chain and the removed block. Assumes the lock is
// held.
func (s *State) disconnectBlock(chain []database.Block) ([]database.Block, database.Block) {
	block := chain[len(chain)-1]

	for _, tx := range block.Txns {
		s.mempool.Upsert(tx)

		for _, txIn := range tx.TxIns {
			if txIn.ToSpend == nil {
				continue
			}
			if utxo, ok := findTxOutForTxIn(txIn, chain); ok {
				s.utxoSet.Add(
					database.TxOut{Value: utxo.Value, ToAddress: utxo.ToAddress},
					utxo.TxID, utxo.TxOutIdx, utxo.IsCoinbase, utxo.Height)
			}
		}

		txID := tx.ID()
		for i := range tx.TxOuts {
			s.utxoSet.Remove(txID, uint32(i))
		}
	}

	s.evHandler("state: disconnectBlock: block %s disconnected", block.ID())

	return chain[:len(chain)-1], block
}

// findTxOutForTxIn searches the chain for the output an input spends.
// Only the chain being disconnected from is searched; spends that cross
// into other historical chains are intentionally not resolved here.
func findTxOutForTxIn(txIn database.TxIn, chain []database.Block) (database.UnspentTxOut, bool) {
	for height, block := range chain {
		for _, tx := range block.Txns {
			if tx.ID() != txIn.ToSpend.TxID {
				continue
			}
			if int(txIn.ToSpend.TxOutIdx) >= len(tx.TxOuts) {
				return database.UnspentTxOut{}, false
			}

			txOut := tx.TxOuts[txIn.ToSpend.TxOutIdx]
			return database.UnspentTxOut{
				Value:      txOut.Value,
				ToAddress:  txOut.ToAddress,
				TxID:       txIn.ToSpend.TxID,
				TxOutIdx:   txIn.ToSpend.TxOutIdx,
				IsCoinbase: tx.IsCoinbase(),
				Height:     int64(height),
			}, true
		}
	}

	return database.UnspentTxOut{}, false
}
