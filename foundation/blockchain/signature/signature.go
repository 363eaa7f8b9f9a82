// Package signature provides the hashing and spend-authorization
// primitives for the blockchain: double SHA-256 ids, base58check address
// derivation, and ECDSA signing of spend messages on secp256k1.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/ripemd160"
)

// AddressVersion is the single byte prepended to the public key hash
// before base58check encoding.
const AddressVersion byte = 0x00

// ErrInvalidSignature is returned when a spend signature does not verify
// against the spend message and public key.
var ErrInvalidSignature = errors.New("invalid signature")

// Hash returns the double SHA-256 of the data as a 64 character hex
// string. Transaction ids, block ids, and merkle nodes all use this.
func Hash(data []byte) string {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])

	return hex.EncodeToString(second[:])
}

// PublicKeyToAddress derives the payment address for a serialized public
// key: base58check over RIPEMD-160(SHA-256(pubkey)) with a version prefix.
func PublicKeyToAddress(pubKey []byte) string {
	sha := sha256.Sum256(pubKey)

	rip := ripemd160.New()
	rip.Write(sha[:])

	return base58.CheckEncode(rip.Sum(nil), AddressVersion)
}

// Sign produces a DER encoded ECDSA signature over the SHA-256 digest of
// the spend message.
func Sign(priv *secp256k1.PrivateKey, message []byte) []byte {
	digest := sha256.Sum256(message)

	return ecdsa.Sign(priv, digest[:]).Serialize()
}

// Verify checks a DER encoded signature over the SHA-256 digest of the
// spend message against the serialized public key.
func Verify(pubKey []byte, sig []byte, message []byte) error {
	pk, err := secp256k1.ParsePubKey(pubKey)
	if err != nil {
		return ErrInvalidSignature
	}

	parsedSig, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return ErrInvalidSignature
	}

	digest := sha256.Sum256(message)
	if !parsedSig.Verify(digest[:], pk) {
		return ErrInvalidSignature
	}

	return nil
}
