package state

import (
	"context"
	"errors"
	"time"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/merkle"
	"github.com/tinychain/tinychain/foundation/blockchain/params"
)

// ErrBlockTooLarge is returned when explicit transactions assemble a
// block over the serialized size limit.
var ErrBlockTooLarge = errors.New("txns specified create a block too large")

// AssembleAndSolveBlock builds the next block on the active tip, paying
// the subsidy and fees to the specified address, and performs the nonce
// search. With no explicit transactions the mempool is drained
// greedily. The search is cancelled through the context; a cancelled
// search returns the context error.
func (s *State) AssembleAndSolveBlock(ctx context.Context, payTo string, txns []database.Transaction) (database.Block, error) {
	block, err := s.assembleBlock(payTo, txns)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: mine: block assembled with %d txns, bits %d", len(block.Txns), block.Bits)

	t := time.Now()
	solved, err := database.POW(ctx, block)
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: mine: block found in %v: %s", time.Since(t), solved.ID())

	return solved, nil
}

// assembleBlock constructs the candidate block under the state lock.
func (s *State) assembleBlock(payTo string, txns []database.Transaction) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevBlockHash := database.GenesisPrevBlockHash
	if len(s.activeChain) > 0 {
		prevBlockHash = s.activeChain[len(s.activeChain)-1].ID()
	}

	block := database.Block{
		Version:       0,
		PrevBlockHash: prevBlockHash,
		MerkleHash:    "",
		Timestamp:     time.Now().Unix(),
		Bits:          s.getNextWorkRequired(prevBlockHash),
		Nonce:         0,
	}

	explicit := len(txns) > 0
	if explicit {
		block.Txns = txns
	} else {
		block = s.selectFromMempool(block)
	}

	fees := s.calculateFees(block)
	coinbase := database.NewCoinbase(payTo, s.blockSubsidy()+fees, len(s.activeChain))
	block.Txns = append([]database.Transaction{coinbase}, block.Txns...)

	txIDs := make([]string, len(block.Txns))
	for i, tx := range block.Txns {
		txIDs[i] = tx.ID()
	}
	block.MerkleHash = merkle.Root(txIDs).Val

	if block.Size() > params.MaxBlockSerializedSize {
		return database.Block{}, ErrBlockTooLarge
	}

	return block, nil
}

// selectFromMempool fills a candidate block from the mempool in arrival
// order, pulling in unconfirmed parents first and stopping at the first
// transaction that would push the block over the size limit. A
// transaction whose parent cannot be resolved is skipped without failing
// the block. Assumes the lock is held.
func (s *State) selectFromMempool(block database.Block) database.Block {
	addedToBlock := make(map[string]bool)

	var tryAddToBlock func(b database.Block, txID string) (database.Block, bool)
	tryAddToBlock = func(b database.Block, txID string) (database.Block, bool) {
		if addedToBlock[txID] {
			return b, true
		}

		tx, exists := s.mempool.Get(txID)
		if !exists {
			return b, false
		}

		// Pull any unconfirmed parent into the block first.
		for _, txIn := range tx.TxIns {
			if txIn.ToSpend == nil || s.utxoSet.Contains(*txIn.ToSpend) {
				continue
			}

			inMempool, found := s.mempool.FindUTXO(txIn)
			if !found {
				s.evHandler("state: mine: could not find UTXO for txin of %s", txID)
				return b, false
			}

			var ok bool
			if b, ok = tryAddToBlock(b, inMempool.TxID); !ok {
				s.evHandler("state: mine: could not add parent %s", inMempool.TxID)
				return b, false
			}
		}

		newBlock := b
		newBlock.Txns = append(append([]database.Transaction{}, b.Txns...), tx)
		if newBlock.Size() < params.MaxBlockSerializedSize {
			addedToBlock[txID] = true
			return newBlock, true
		}

		// Hand back the oversize block so the caller stops selecting.
		return newBlock, true
	}

	for _, txID := range s.mempool.TxIDs() {
		newBlock, ok := tryAddToBlock(block, txID)
		if !ok {
			continue
		}

		if newBlock.Size() < params.MaxBlockSerializedSize {
			block = newBlock
		} else {
			break
		}
	}

	return block
}
