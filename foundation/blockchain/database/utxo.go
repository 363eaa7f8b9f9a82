package database

import (
	"sync"
)

// UTXOSet indexes the unspent outputs of the active chain by outpoint.
type UTXOSet struct {
	mu  sync.RWMutex
	set map[OutPoint]UnspentTxOut
}

// NewUTXOSet constructs an empty UTXO set.
func NewUTXOSet() *UTXOSet {
	return &UTXOSet{
		set: make(map[OutPoint]UnspentTxOut),
	}
}

// Add records a transaction output as spendable.
func (us *UTXOSet) Add(txOut TxOut, txID string, txOutIdx uint32, isCoinbase bool, height int64) {
	us.mu.Lock()
	defer us.mu.Unlock()

	utxo := UnspentTxOut{
		Value:      txOut.Value,
		ToAddress:  txOut.ToAddress,
		TxID:       txID,
		TxOutIdx:   txOutIdx,
		IsCoinbase: isCoinbase,
		Height:     height,
	}

	us.set[utxo.OutPoint()] = utxo
}

// Remove deletes the output from the set.
func (us *UTXOSet) Remove(txID string, txOutIdx uint32) {
	us.mu.Lock()
	defer us.mu.Unlock()

	delete(us.set, OutPoint{TxID: txID, TxOutIdx: txOutIdx})
}

// Get returns the unspent output for the outpoint if present.
func (us *UTXOSet) Get(op OutPoint) (UnspentTxOut, bool) {
	us.mu.RLock()
	defer us.mu.RUnlock()

	utxo, exists := us.set[op]
	return utxo, exists
}

// Contains reports whether the outpoint is unspent.
func (us *UTXOSet) Contains(op OutPoint) bool {
	us.mu.RLock()
	defer us.mu.RUnlock()

	_, exists := us.set[op]
	return exists
}

// Count returns the number of unspent outputs.
func (us *UTXOSet) Count() int {
	us.mu.RLock()
	defer us.mu.RUnlock()

	return len(us.set)
}

// Copy returns a snapshot of the set.
func (us *UTXOSet) Copy() map[OutPoint]UnspentTxOut {
	us.mu.RLock()
	defer us.mu.RUnlock()

	cpy := make(map[OutPoint]UnspentTxOut, len(us.set))
	for op, utxo := range us.set {
		cpy[op] = utxo
	}

	return cpy
}

// FindByAddress returns the unspent outputs locked to the address.
func (us *UTXOSet) FindByAddress(address string) []UnspentTxOut {
	us.mu.RLock()
	defer us.mu.RUnlock()

	var utxos []UnspentTxOut
	for _, utxo := range us.set {
		if utxo.ToAddress == address {
			utxos = append(utxos, utxo)
		}
	}

	return utxos
}
