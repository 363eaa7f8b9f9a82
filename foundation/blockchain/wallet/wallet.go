// Package wallet manages the node's keypair: a single hex-encoded
// secp256k1 private key on disk, the address derived from it, and the
// construction of signed spend transactions.
package wallet

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tinychain/tinychain/foundation/blockchain/database"
	"github.com/tinychain/tinychain/foundation/blockchain/signature"
)

// ErrInsufficientFunds is returned when the available outputs cannot
// cover a requested spend.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Wallet holds the keypair used to receive and spend coins.
type Wallet struct {
	priv *secp256k1.PrivateKey
}

// Load reads the wallet file, creating and persisting a fresh key when
// the file does not exist yet.
func Load(path string) (*Wallet, error) {
	key, err := crypto.LoadECDSA(path)
	if err == nil {
		return &Wallet{priv: secp256k1.PrivKeyFromBytes(crypto.FromECDSA(key))}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load wallet %s: %w", path, err)
	}

	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	ecdsaKey, err := crypto.ToECDSA(priv.Serialize())
	if err != nil {
		return nil, fmt.Errorf("convert key: %w", err)
	}
	if err := crypto.SaveECDSA(path, ecdsaKey); err != nil {
		return nil, fmt.Errorf("save wallet %s: %w", path, err)
	}

	return &Wallet{priv: priv}, nil
}

// New constructs a wallet around an existing private key.
func New(priv *secp256k1.PrivateKey) *Wallet {
	return &Wallet{priv: priv}
}

// PublicKey returns the serialized public key.
func (w *Wallet) PublicKey() []byte {
	return w.priv.PubKey().SerializeUncompressed()
}

// Address returns the payment address for this wallet.
func (w *Wallet) Address() string {
	return signature.PublicKeyToAddress(w.PublicKey())
}

// BuildTransaction selects enough of the wallet's unspent outputs to
// cover value, and returns a transaction sending value to the address
// with every input signed. No change output is produced; any remainder
// is claimed by the miner as fee.
func (w *Wallet) BuildTransaction(utxos []database.UnspentTxOut, toAddress string, value uint64) (database.Transaction, error) {
	coins := make([]database.UnspentTxOut, len(utxos))
	copy(coins, utxos)

	sort.Slice(coins, func(i, j int) bool {
		if coins[i].Value != coins[j].Value {
			return coins[i].Value < coins[j].Value
		}
		return coins[i].Height < coins[j].Height
	})

	var selected []database.UnspentTxOut
	var total uint64
	for _, coin := range coins {
		selected = append(selected, coin)
		if total += coin.Value; total >= value {
			break
		}
	}

	if total < value {
		return database.Transaction{}, ErrInsufficientFunds
	}

	txOuts := []database.TxOut{{Value: value, ToAddress: toAddress}}

	txIns := make([]database.TxIn, len(selected))
	for i, coin := range selected {
		txIns[i] = w.signedInput(coin.OutPoint(), 0, txOuts)
	}

	return database.Transaction{TxIns: txIns, TxOuts: txOuts}, nil
}

// signedInput builds one input spending the outpoint, committing to the
// transaction's outputs through the spend message.
func (w *Wallet) signedInput(toSpend database.OutPoint, sequence uint32, txOuts []database.TxOut) database.TxIn {
	pubKey := w.PublicKey()
	spendMsg := database.BuildSpendMessage(toSpend, pubKey, sequence, txOuts)

	return database.TxIn{
		ToSpend:   &toSpend,
		UnlockSig: signature.Sign(w.priv, spendMsg),
		UnlockPK:  pubKey,
		Sequence:  sequence,
	}
}
