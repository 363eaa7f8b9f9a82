package database

import (
	"encoding/hex"
	"strconv"

	"github.com/tinychain/tinychain/foundation/blockchain/serialize"
	"github.com/tinychain/tinychain/foundation/blockchain/signature"
)

func init() {
	serialize.Register("OutPoint", OutPoint{})
	serialize.Register("TxIn", TxIn{})
	serialize.Register("TxOut", TxOut{})
	serialize.Register("UnspentTxOut", UnspentTxOut{})
	serialize.Register("Transaction", Transaction{})
}

// OutPoint identifies one output of one transaction.
type OutPoint struct {
	TxID     string `json:"txid"`
	TxOutIdx uint32 `json:"txout_idx"`
}

// TxIn spends a previous output. A nil ToSpend marks a coinbase input;
// its UnlockSig then carries the block height as opaque bytes.
type TxIn struct {
	ToSpend   *OutPoint `json:"to_spend"`
	UnlockSig []byte    `json:"unlock_sig"`
	UnlockPK  []byte    `json:"unlock_pk"`
	Sequence  uint32    `json:"sequence"`
}

// TxOut locks a value to a single address.
type TxOut struct {
	Value     uint64 `json:"value"`
	ToAddress string `json:"to_address"`
}

// UnspentTxOut is the enriched TxOut record held in the UTXO set. Height
// is the active chain index of the confirming block, or -1 for outputs
// resolved from unconfirmed transactions.
type UnspentTxOut struct {
	Value      uint64 `json:"value"`
	ToAddress  string `json:"to_address"`
	TxID       string `json:"txid"`
	TxOutIdx   uint32 `json:"txout_idx"`
	IsCoinbase bool   `json:"is_coinbase"`
	Height     int64  `json:"height"`
}

// OutPoint returns the key locating this output.
func (u UnspentTxOut) OutPoint() OutPoint {
	return OutPoint{TxID: u.TxID, TxOutIdx: u.TxOutIdx}
}

// Transaction moves value from a set of previous outputs to a set of new
// outputs.
type Transaction struct {
	TxIns    []TxIn  `json:"txins"`
	TxOuts   []TxOut `json:"txouts"`
	Locktime *uint32 `json:"locktime"`
}

// NewCoinbase constructs the transaction that creates new coins and
// collects fees for the block at the specified height.
func NewCoinbase(payTo string, value uint64, height int) Transaction {
	return Transaction{
		TxIns: []TxIn{
			{
				ToSpend:   nil,
				UnlockSig: []byte(strconv.Itoa(height)),
				UnlockPK:  nil,
				Sequence:  0,
			},
		},
		TxOuts: []TxOut{
			{
				Value:     value,
				ToAddress: payTo,
			},
		},
	}
}

// ID returns the transaction id: the double SHA-256 of the canonical
// serialization.
func (tx Transaction) ID() string {
	data, err := serialize.Marshal(tx)
	if err != nil {
		return ""
	}

	return signature.Hash(data)
}

// IsCoinbase reports whether this transaction mints new coins.
func (tx Transaction) IsCoinbase() bool {
	return len(tx.TxIns) == 1 && tx.TxIns[0].ToSpend == nil
}

// Size returns the length in bytes of the canonical serialization.
func (tx Transaction) Size() int {
	data, err := serialize.Marshal(tx)
	if err != nil {
		return 0
	}

	return len(data)
}

// OutputValue returns the sum of all output values.
func (tx Transaction) OutputValue() uint64 {
	var total uint64
	for _, txOut := range tx.TxOuts {
		total += txOut.Value
	}

	return total
}

// BuildSpendMessage constructs the message a spender signs: a commitment
// to the outpoint being spent, the signer's public key, the input's
// sequence number, and all of the transaction's outputs.
func BuildSpendMessage(toSpend OutPoint, pubKey []byte, sequence uint32, txOuts []TxOut) []byte {
	outPointData, err := serialize.Marshal(toSpend)
	if err != nil {
		return nil
	}

	txOutsData, err := serialize.Marshal(txOuts)
	if err != nil {
		return nil
	}

	msg := string(outPointData) +
		strconv.FormatUint(uint64(sequence), 10) +
		hex.EncodeToString(pubKey) +
		string(txOutsData)

	return []byte(signature.Hash([]byte(msg)))
}
