package state

import (
	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/params"
)

// getNextWorkRequired returns the difficulty bits for the block that
// would follow prevBlockHash. Retargeting happens once per period: one
// bit harder when the period ran fast, one easier when it ran slow.
// Assumes the lock is held.
func (s *State) getNextWorkRequired(prevBlockHash string) uint32 {
	if prevBlockHash == database.GenesisPrevBlockHash || prevBlockHash == "" {
		return s.params.InitialDifficultyBits
	}

	prevBlock, prevHeight, _, found := s.locateBlock(prevBlockHash)
	if !found {
		return s.params.InitialDifficultyBits
	}

	if (prevHeight+1)%s.params.DifficultyPeriodInBlocks != 0 {
		return prevBlock.Bits
	}

	startIdx := prevHeight - (s.params.DifficultyPeriodInBlocks - 1)
	if startIdx < 0 {
		startIdx = 0
	}
	periodStartBlock := s.activeChain[startIdx]

	actualTimeTaken := prevBlock.Timestamp - periodStartBlock.Timestamp

	switch {
	case actualTimeTaken < s.params.DifficultyPeriodTarget:
		return prevBlock.Bits + 1
	case actualTimeTaken > s.params.DifficultyPeriodTarget:
		return prevBlock.Bits - 1
	default:
		return prevBlock.Bits
	}
}

// NextWorkRequired is the exported, locking form of getNextWorkRequired.
func (s *State) NextWorkRequired(prevBlockHash string) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.getNextWorkRequired(prevBlockHash)
}

// blockSubsidy returns the coinbase subsidy at the next block height.
// Assumes the lock is held.
func (s *State) blockSubsidy() uint64 {
	halvings := len(s.activeChain) / s.params.HalveSubsidyAfterBlocks
	if halvings >= 64 {
		return 0
	}

	return uint64(50*params.BelushisPerCoin) >> uint(halvings)
}

// calculateFees sums input value minus output value over the block's
// non-coinbase transactions, resolving spends against the UTXO set and
// the block's own outputs. Assumes the lock is held.
func (s *State) calculateFees(block database.Block) uint64 {
	return block.Fees(func(op database.OutPoint) (database.TxOut, bool) {
		if utxo, ok := s.utxoSet.Get(op); ok {
			return database.TxOut{Value: utxo.Value, ToAddress: utxo.ToAddress}, true
		}

		for _, tx := range block.Txns {
			if tx.ID() == op.TxID && int(op.TxOutIdx) < len(tx.TxOuts) {
				return tx.TxOuts[op.TxOutIdx], true
			}
		}

		return database.TxOut{}, false
	})
}
