// Package mempool maintains the set of pending transactions, in arrival
// order, plus the orphans whose inputs cannot be resolved yet.
package mempool

import (
	"sync"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
)

// Mempool is a cache of transactions by id. Iteration order is insertion
// order, which block assembly depends on.
type Mempool struct {
	mu      sync.RWMutex
	pool    map[string]database.Transaction
	order   []string
	orphans []database.Transaction
}

// New constructs an empty mempool.
func New() *Mempool {
	return &Mempool{
		pool: make(map[string]database.Transaction),
	}
}

// Count returns the current number of pending transactions.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Contains reports whether the transaction id is pending.
func (mp *Mempool) Contains(txID string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[txID]
	return exists
}

// Get returns the pending transaction for the id.
func (mp *Mempool) Get(txID string) (database.Transaction, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	tx, exists := mp.pool[txID]
	return tx, exists
}

// Upsert adds a transaction to the pool. A transaction already present
// keeps its original position.
func (mp *Mempool) Upsert(tx database.Transaction) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	txID := tx.ID()
	if _, exists := mp.pool[txID]; !exists {
		mp.order = append(mp.order, txID)
	}
	mp.pool[txID] = tx
}

// Delete removes a transaction from the pool.
func (mp *Mempool) Delete(txID string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[txID]; !exists {
		return
	}

	delete(mp.pool, txID)
	for i, id := range mp.order {
		if id == txID {
			mp.order = append(mp.order[:i], mp.order[i+1:]...)
			break
		}
	}
}

// TxIDs returns the pending transaction ids in insertion order.
func (mp *Mempool) TxIDs() []string {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	ids := make([]string, len(mp.order))
	copy(ids, mp.order)

	return ids
}

// FindUTXO resolves an input against the pool's unconfirmed outputs. The
// returned record carries height -1 since it is not part of the chain.
func (mp *Mempool) FindUTXO(txIn database.TxIn) (database.UnspentTxOut, bool) {
	if txIn.ToSpend == nil {
		return database.UnspentTxOut{}, false
	}

	mp.mu.RLock()
	defer mp.mu.RUnlock()

	tx, exists := mp.pool[txIn.ToSpend.TxID]
	if !exists || int(txIn.ToSpend.TxOutIdx) >= len(tx.TxOuts) {
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

// AddOrphan records a transaction whose referenced outputs are unknown.
func (mp *Mempool) AddOrphan(tx database.Transaction) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.orphans = append(mp.orphans, tx)
}

// Orphans returns a snapshot of the orphan transactions.
func (mp *Mempool) Orphans() []database.Transaction {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	cpy := make([]database.Transaction, len(mp.orphans))
	copy(cpy, mp.orphans)

	return cpy
}
