package ledger

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// generateKeyPair produces a fresh ed25519 key pair from the provided entropy
// source. The only failure mode is the entropy source itself.
func generateKeyPair(rand io.Reader) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generate key pair: %v", ErrCryptoOperation, err)
	}
	return pub, priv, nil
}

// DeriveAddress maps a public key to its textual wallet address: the hex
// encoding of the key's BLAKE2b-256 digest. Deterministic, and collision-free
// for all practical purposes given the 256-bit digest space.
func DeriveAddress(pub ed25519.PublicKey) string {
	sum := blake2b.Sum256(pub)
	return hex.EncodeToString(sum[:])
}
