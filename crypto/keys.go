package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// PublicKeyLength is the size of a ledger account address in bytes.
const PublicKeyLength = ed25519.PublicKeySize

// PublicKey is a 32-byte ed25519 public key identifying a ledger account.
// Its canonical text form is base58.
type PublicKey [PublicKeyLength]byte

// String returns the base58 rendering of the key.
func (p PublicKey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns a copy of the raw key bytes.
func (p PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeyLength)
	copy(out, p[:])
	return out
}

// IsZero reports whether the key is the all-zero value.
func (p PublicKey) IsZero() bool {
	return p == PublicKey{}
}

// Verify checks an ed25519 signature over msg.
func (p PublicKey) Verify(msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(p[:]), msg, sig)
}

// MarshalJSON renders the key as its base58 text form.
func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses the base58 text form.
func (p *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	key, err := ParsePublicKey(s)
	if err != nil {
		return err
	}
	*p = key
	return nil
}

// PublicKeyFromBytes converts a raw 32-byte slice into a PublicKey.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	if len(b) != PublicKeyLength {
		return PublicKey{}, fmt.Errorf("public key must be %d bytes, got %d", PublicKeyLength, len(b))
	}
	var key PublicKey
	copy(key[:], b)
	return key, nil
}

// ParsePublicKey decodes a base58 account address.
func ParsePublicKey(s string) (PublicKey, error) {
	decoded := base58.Decode(s)
	if len(decoded) != PublicKeyLength {
		return PublicKey{}, fmt.Errorf("invalid base58 public key: %q", s)
	}
	return PublicKeyFromBytes(decoded)
}

// MustParsePublicKey is ParsePublicKey for well-known constants; it panics on
// malformed input.
func MustParsePublicKey(s string) PublicKey {
	key, err := ParsePublicKey(s)
	if err != nil {
		panic(err)
	}
	return key
}

// PrivateKey wraps an ed25519 private key used to sign transactions.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// GeneratePrivateKey creates a fresh random keypair.
func GeneratePrivateKey() (*PrivateKey, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromSeed derives a keypair from a 32-byte seed. Deterministic;
// used by tests and the CLI keystore.
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// PrivateKeyFromBytes restores a keypair from the 64-byte expanded form.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(b))
	}
	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(key, b)
	return &PrivateKey{key: key}, nil
}

// Bytes returns the expanded 64-byte private key.
func (k *PrivateKey) Bytes() []byte {
	out := make([]byte, len(k.key))
	copy(out, k.key)
	return out
}

// PubKey returns the public half of the keypair.
func (k *PrivateKey) PubKey() PublicKey {
	var pub PublicKey
	copy(pub[:], k.key.Public().(ed25519.PublicKey))
	return pub
}

// Sign produces an ed25519 signature over msg.
func (k *PrivateKey) Sign(msg []byte) []byte {
	return ed25519.Sign(k.key, msg)
}

// Equal reports whether two private keys hold the same key material.
func (k *PrivateKey) Equal(other *PrivateKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	return bytes.Equal(k.key, other.key)
}
