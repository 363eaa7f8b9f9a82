package state

import (
	"github.com/tinychain/tinychain/foundation/blockchain/database"
)

// TxnValidationError reports a transaction that failed validation. When
// the failure is an unresolvable input, ToOrphan carries the transaction
// so the caller can park it with the orphans.
type TxnValidationError struct {
	Msg      string
	ToOrphan *database.Transaction
}

// Error implements the error interface.
func (e *TxnValidationError) Error() string {
	return e.Msg
}

// BlockValidationError reports a block that failed validation. When the
// failure is an unknown parent, ToOrphan carries the block.
type BlockValidationError struct {
	Msg      string
	ToOrphan *database.Block
}

// Error implements the error interface.
func (e *BlockValidationError) Error() string {
	return e.Msg
}
