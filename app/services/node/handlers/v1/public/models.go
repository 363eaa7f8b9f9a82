package public

import (
	"encoding/hex"

	"github.com/tinychain/tinychain/foundation/blockchain/database"
)

// status is the response shape for the node status endpoint.
type status struct {
	Height       int64    `json:"height"`
	TipBlockID   string   `json:"tip_block_id"`
	MempoolCount int      `json:"mempool_count"`
	UTXOCount    int      `json:"utxo_count"`
	SideBranches int      `json:"side_branches"`
	KnownPeers   []string `json:"known_peers"`
}

// submitTx is a wallet transaction submitted over the HTTP surface.
type submitTx struct {
	TxIns  []submitTxIn  `json:"txins" validate:"required,min=1,dive"`
	TxOuts []submitTxOut `json:"txouts" validate:"required,min=1,dive"`
}

type submitTxIn struct {
	TxID      string `json:"txid" validate:"required,len=64,hexadecimal"`
	TxOutIdx  uint32 `json:"txout_idx"`
	UnlockSig string `json:"unlock_sig" validate:"required,hexadecimal"`
	UnlockPK  string `json:"unlock_pk" validate:"required,hexadecimal"`
	Sequence  uint32 `json:"sequence"`
}

type submitTxOut struct {
	Value     uint64 `json:"value" validate:"required,gt=0"`
	ToAddress string `json:"to_address" validate:"required"`
}

// toTransaction converts the request payload into the canonical entity.
func (tx submitTx) toTransaction() (database.Transaction, error) {
	txIns := make([]database.TxIn, len(tx.TxIns))
	for i, in := range tx.TxIns {
		sig, err := hex.DecodeString(in.UnlockSig)
		if err != nil {
			return database.Transaction{}, err
		}
		pk, err := hex.DecodeString(in.UnlockPK)
		if err != nil {
			return database.Transaction{}, err
		}

		txIns[i] = database.TxIn{
			ToSpend:   &database.OutPoint{TxID: in.TxID, TxOutIdx: in.TxOutIdx},
			UnlockSig: sig,
			UnlockPK:  pk,
			Sequence:  in.Sequence,
		}
	}

	txOuts := make([]database.TxOut, len(tx.TxOuts))
	for i, out := range tx.TxOuts {
		txOuts[i] = database.TxOut{
			Value:     out.Value,
			ToAddress: out.ToAddress,
		}
	}

	return database.Transaction{TxIns: txIns, TxOuts: txOuts}, nil
}
