// Package params defines the consensus parameters and the hard-coded
// genesis block. Parameters are carried as a value so tests can run a
// cheap-difficulty network next to the main one.
package params

import (
	"github.com/tinychain/tinychain/foundation/blockchain/database"
)

// Monetary constants. The smallest unit is the belushi.
const (
	BelushisPerCoin = 100_000_000
	TotalCoins      = 21_000_000
	MaxMoney        = BelushisPerCoin * TotalCoins
)

// MaxBlockSerializedSize bounds the canonical serialization of a block.
const MaxBlockSerializedSize = 1_000_000

// Params holds the consensus rules that differ between networks.
type Params struct {
	// MaxFutureBlockTime is how far ahead of local time a block
	// timestamp may run, in seconds.
	MaxFutureBlockTime int64

	// CoinbaseMaturity is the number of blocks a coinbase output must
	// age before it can be spent.
	CoinbaseMaturity int64

	// TimeBetweenBlocksTarget is the desired block interval in seconds.
	TimeBetweenBlocksTarget int64

	// DifficultyPeriodTarget is the desired elapsed time of one
	// retargeting period in seconds.
	DifficultyPeriodTarget int64

	// DifficultyPeriodInBlocks is the retargeting interval.
	DifficultyPeriodInBlocks int

	// InitialDifficultyBits is the difficulty of the first period.
	InitialDifficultyBits uint32

	// HalveSubsidyAfterBlocks is the subsidy halving interval.
	HalveSubsidyAfterBlocks int

	// Genesis is the first block of the chain.
	Genesis database.Block
}

// Mainnet returns the parameters of the one true chain. The genesis block
// must match byte for byte; every node hard-codes it.
func Mainnet() Params {
	return Params{
		MaxFutureBlockTime:       60 * 60 * 2,
		CoinbaseMaturity:         2,
		TimeBetweenBlocksTarget:  60,
		DifficultyPeriodTarget:   60 * 60 * 10,
		DifficultyPeriodInBlocks: 600,
		InitialDifficultyBits:    24,
		HalveSubsidyAfterBlocks:  210_000,
		Genesis:                  genesisBlock(),
	}
}

func genesisBlock() database.Block {
	return database.Block{
		Version:       0,
		PrevBlockHash: database.GenesisPrevBlockHash,
		MerkleHash:    "7118894203235a955a908c0abfc6d8fe6edec47b0a04ce1bf7263da3b4366d22",
		Timestamp:     1501821412,
		Bits:          24,
		Nonce:         10126761,
		Txns: []database.Transaction{
			{
				TxIns: []database.TxIn{
					{
						ToSpend:   nil,
						UnlockSig: []byte("0"),
						UnlockPK:  nil,
						Sequence:  0,
					},
				},
				TxOuts: []database.TxOut{
					{
						Value:     5_000_000_000,
						ToAddress: "143UVyz7ooiAv1pMqbwPPpnH4BV9ifJGFF",
					},
				},
			},
		},
	}
}
