package state

import (
	"fmt"
	"time"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/merkle"
	"github.com/tinychain/tinychain/foundation/blockchain/params"
	"github.com/tinychain/tinychain/foundation/blockchain/signature"
)

// medianTimeWindow is the number of trailing blocks whose median
// timestamp lower-bounds a new block's timestamp.
const medianTimeWindow = 11

// txnValidationOpts controls the context a transaction is validated in.
type txnValidationOpts struct {
	asCoinbase           bool
	siblingsInBlock      []database.Transaction
	allowUTXOFromMempool bool
}

// validateTxnBasics applies the context-free transaction checks.
func validateTxnBasics(tx database.Transaction, asCoinbase bool) error {
	if len(tx.TxOuts) == 0 || (len(tx.TxIns) == 0 && !asCoinbase) {
		return &TxnValidationError{Msg: "missing txouts or txins"}
	}

	if tx.Size() > params.MaxBlockSerializedSize {
		return &TxnValidationError{Msg: "too large"}
	}

	if tx.OutputValue() > params.MaxMoney {
		return &TxnValidationError{Msg: "spend value too high"}
	}

	return nil
}

// validateTxn checks a transaction against the current chain state,
// resolving each input against the confirmed UTXO set, then the block
// siblings when provided, then the mempool when allowed. Assumes the
// lock is held.
func (s *State) validateTxn(tx database.Transaction, opts txnValidationOpts) error {
	if err := validateTxnBasics(tx, opts.asCoinbase); err != nil {
		return err
	}

	var availableToSpend uint64

	for i, txIn := range tx.TxIns {
		var utxo database.UnspentTxOut
		var found bool

		if txIn.ToSpend != nil {
			utxo, found = s.utxoSet.Get(*txIn.ToSpend)
		}
		if !found && len(opts.siblingsInBlock) > 0 {
			utxo, found = findUTXOInList(txIn, opts.siblingsInBlock)
		}
		if !found && opts.allowUTXOFromMempool {
			utxo, found = s.mempool.FindUTXO(txIn)
		}

		if !found {
			orphan := tx
			return &TxnValidationError{
				Msg:      fmt.Sprintf("could not find UTXO for txin %d of txn %s", i, tx.ID()),
				ToOrphan: &orphan,
			}
		}

		if utxo.IsCoinbase && s.height()-utxo.Height < s.params.CoinbaseMaturity {
			return &TxnValidationError{Msg: "coinbase UTXO not ready for spend"}
		}

		if err := validateSignatureForSpend(txIn, utxo, tx.TxOuts); err != nil {
			return &TxnValidationError{Msg: fmt.Sprintf("txin %d is not a valid spend of %s:%d: %s",
				i, utxo.TxID, utxo.TxOutIdx, err)}
		}

		availableToSpend += utxo.Value
	}

	if availableToSpend < tx.OutputValue() {
		return &TxnValidationError{Msg: "spend value is more than available"}
	}

	return nil
}

// findUTXOInList resolves an input against the outputs created by a list
// of transactions, used for spends between transactions of one block.
func findUTXOInList(txIn database.TxIn, txns []database.Transaction) (database.UnspentTxOut, bool) {
	if txIn.ToSpend == nil {
		return database.UnspentTxOut{}, false
	}

	for _, tx := range txns {
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
			IsCoinbase: false,
			Height:     -1,
		}, true
	}

	return database.UnspentTxOut{}, false
}

// validateSignatureForSpend checks that the input's public key hashes to
// the address the output is locked to and that the signature covers the
// spend message.
func validateSignatureForSpend(txIn database.TxIn, utxo database.UnspentTxOut, txOuts []database.TxOut) error {
	if signature.PublicKeyToAddress(txIn.UnlockPK) != utxo.ToAddress {
		return fmt.Errorf("pubkey does not match address %s", utxo.ToAddress)
	}

	spendMsg := database.BuildSpendMessage(*txIn.ToSpend, txIn.UnlockPK, txIn.Sequence, txOuts)

	return signature.Verify(txIn.UnlockPK, txIn.UnlockSig, spendMsg)
}

// =============================================================================

// validateBlock checks a block and decides which chain it extends. The
// returned chain index is 0 for the active chain and k+1 for side branch
// k; an index one past the current branches means a new fork. Assumes
// the lock is held.
func (s *State) validateBlock(block database.Block) (int, error) {
	if len(block.Txns) == 0 {
		return 0, &BlockValidationError{Msg: "txns empty"}
	}

	if block.Timestamp-time.Now().Unix() > s.params.MaxFutureBlockTime {
		return 0, &BlockValidationError{Msg: "block timestamp too far in future"}
	}

	if !block.SatisfiesPoW() {
		return 0, &BlockValidationError{Msg: "block header does not satisfy bits"}
	}

	for i, tx := range block.Txns {
		if tx.IsCoinbase() != (i == 0) {
			return 0, &BlockValidationError{Msg: "first txn must be coinbase and no more"}
		}
	}

	for i, tx := range block.Txns {
		if err := validateTxnBasics(tx, i == 0); err != nil {
			return 0, &BlockValidationError{Msg: fmt.Sprintf("txn %s failed basic validation: %s", tx.ID(), err)}
		}
	}

	txIDs := make([]string, len(block.Txns))
	for i, tx := range block.Txns {
		txIDs[i] = tx.ID()
	}
	if root := merkle.Root(txIDs); root == nil || root.Val != block.MerkleHash {
		return 0, &BlockValidationError{Msg: "merkle hash invalid"}
	}

	if block.Timestamp <= s.medianTimePast(medianTimeWindow) {
		return 0, &BlockValidationError{Msg: "timestamp too old"}
	}

	var chainIdx int
	switch {
	case block.PrevBlockHash == database.GenesisPrevBlockHash && len(s.activeChain) == 0:
		chainIdx = activeChainIdx

	default:
		prevBlock, _, prevChainIdx, found := s.locateBlock(block.PrevBlockHash)
		if !found {
			orphan := block
			return 0, &BlockValidationError{
				Msg:      fmt.Sprintf("prev block %s not found in any chain", block.PrevBlockHash),
				ToOrphan: &orphan,
			}
		}

		// Extending a side branch: no further validation, the work
		// happens if the branch ever wins a reorg.
		if prevChainIdx != activeChainIdx {
			return prevChainIdx, nil
		}

		// Forking off the middle of the active chain: allocate the
		// next side branch slot.
		if prevBlock.ID() != s.activeChain[len(s.activeChain)-1].ID() {
			return len(s.sideBranches) + 1, nil
		}

		chainIdx = activeChainIdx
	}

	if bits := s.getNextWorkRequired(block.PrevBlockHash); bits != block.Bits {
		return 0, &BlockValidationError{Msg: fmt.Sprintf("bits is incorrect, got %d, exp %d", block.Bits, bits)}
	}

	nonCoinbase := block.Txns[1:]
	for _, tx := range nonCoinbase {
		if err := s.validateTxn(tx, txnValidationOpts{
			asCoinbase:           false,
			siblingsInBlock:      nonCoinbase,
			allowUTXOFromMempool: false,
		}); err != nil {
			return 0, &BlockValidationError{Msg: fmt.Sprintf("txn %s failed to validate: %s", tx.ID(), err)}
		}
	}

	return chainIdx, nil
}
