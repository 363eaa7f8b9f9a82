package state

import (
	"errors"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
)

// AddTxnToMempool validates a transaction against the current state and
// admits it to the mempool. Orphans are parked; accepted transactions are
// shared with the known peers.
func (s *State) AddTxnToMempool(tx database.Transaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addTxnToMempool(tx)
}

// addTxnToMempool assumes the lock is held.
func (s *State) addTxnToMempool(tx database.Transaction) bool {
	txID := tx.ID()

	if s.mempool.Contains(txID) {
		s.evHandler("state: mempool: txn %s already seen", txID)
		return false
	}

	if err := s.validateTxn(tx, txnValidationOpts{allowUTXOFromMempool: true}); err != nil {
		var tve *TxnValidationError
		if errors.As(err, &tve) && tve.ToOrphan != nil {
			s.evHandler("state: mempool: txn %s submitted as orphan", txID)
			s.mempool.AddOrphan(*tve.ToOrphan)
			return false
		}

		s.evHandler("state: mempool: txn %s rejected: %s", txID, err)
		return false
	}

	s.mempool.Upsert(tx)
	s.evHandler("state: mempool: txn %s added", txID)

	for _, p := range s.knownPeers.Copy(s.host) {
		go s.client.Send(p.Host, tx)
	}

	return true
}
