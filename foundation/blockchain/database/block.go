package database

import (
	"fmt"
	"math/big"

	"github.com/tinychain/tinychain/foundation/blockchain/serialize"
	"github.com/tinychain/tinychain/foundation/blockchain/signature"
)

func init() {
	serialize.Register("Block", Block{})
}

// GenesisPrevBlockHash is the sentinel parent hash carried by the genesis
// block.
const GenesisPrevBlockHash = "None"

// Block is a group of transactions committed to by a mined header.
type Block struct {
	Version       uint32        `json:"version"`
	PrevBlockHash string        `json:"prev_block_hash"`
	MerkleHash    string        `json:"merkle_hash"`
	Timestamp     int64         `json:"timestamp"`
	Bits          uint32        `json:"bits"`
	Nonce         uint64        `json:"nonce"`
	Txns          []Transaction `json:"txns"`
}

// Header renders the fields committed to by proof of work. The block id
// is the double SHA-256 of this rendering.
func (b Block) Header() string {
	return fmt.Sprintf("%d%s%s%d%d%d",
		b.Version, b.PrevBlockHash, b.MerkleHash, b.Timestamp, b.Bits, b.Nonce)
}

// ID returns the block id.
func (b Block) ID() string {
	return signature.Hash([]byte(b.Header()))
}

// Size returns the length in bytes of the canonical serialization.
func (b Block) Size() int {
	data, err := serialize.Marshal(b)
	if err != nil {
		return 0
	}

	return len(data)
}

// Fees returns the total fee claimed by this input-bearing block: the sum
// over non-coinbase transactions of input value minus output value. The
// resolve function maps an outpoint to the output it spends, looking in
// the UTXO set and then among the block's own transactions.
func (b Block) Fees(resolve func(OutPoint) (TxOut, bool)) uint64 {
	var fees uint64

	for _, tx := range b.Txns {
		if tx.IsCoinbase() {
			continue
		}

		var spent uint64
		for _, txIn := range tx.TxIns {
			if txOut, ok := resolve(*txIn.ToSpend); ok {
				spent += txOut.Value
			}
		}

		fees += spent - tx.OutputValue()
	}

	return fees
}

// PoWTarget returns the acceptance threshold for the difficulty bits:
// a block id interpreted as a 256-bit integer must be below 2^(256-bits).
func PoWTarget(bits uint32) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), 256-uint(bits))
}

// SatisfiesPoW reports whether the block id meets its own bits.
func (b Block) SatisfiesPoW() bool {
	h, ok := new(big.Int).SetString(b.ID(), 16)
	if !ok {
		return false
	}

	return h.Cmp(PoWTarget(b.Bits)) < 0
}
