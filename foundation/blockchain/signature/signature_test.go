package signature_test

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinychain/tinychain/foundation/blockchain/signature"
)

func TestHash(t *testing.T) {

	// Double SHA-256 of the empty string is a fixed value.
	const expEmpty = "5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456"

	assert.Equal(t, expEmpty, signature.Hash(nil))
	assert.Equal(t, expEmpty, signature.Hash([]byte{}))
	assert.Len(t, signature.Hash([]byte("tinychain")), 64)
	assert.NotEqual(t, signature.Hash([]byte("a")), signature.Hash([]byte("b")))
}

func TestPublicKeyToAddress(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	pub := priv.PubKey().SerializeUncompressed()

	addr := signature.PublicKeyToAddress(pub)
	assert.NotEmpty(t, addr)
	assert.Equal(t, addr, signature.PublicKeyToAddress(pub), "derivation must be stable")

	// A version 0x00 base58check address leads with 1.
	assert.Equal(t, byte('1'), addr[0])
}

func TestSignVerify(t *testing.T) {
	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	pub := priv.PubKey().SerializeUncompressed()
	msg := []byte("spend message")

	sig := signature.Sign(priv, msg)
	require.NotEmpty(t, sig)

	assert.NoError(t, signature.Verify(pub, sig, msg))
	assert.ErrorIs(t, signature.Verify(pub, sig, []byte("other message")), signature.ErrInvalidSignature)

	other, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	otherPub := other.PubKey().SerializeUncompressed()

	assert.ErrorIs(t, signature.Verify(otherPub, sig, msg), signature.ErrInvalidSignature)
	assert.ErrorIs(t, signature.Verify(pub, []byte("junk"), msg), signature.ErrInvalidSignature)
	assert.ErrorIs(t, signature.Verify([]byte("junk"), sig, msg), signature.ErrInvalidSignature)
}
