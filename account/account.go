// Package account defines the address type used to identify bidders, the
// administrator, and the treasury beneficiary, plus derivation of addresses
// from signing keys.
package account

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the number of raw bytes in an address.
const AddressLength = 20

// Address identifies an account. Addresses are lower-case hex strings with
// a 0x prefix so they can be used directly as map keys and in JSON.
// The zero value means "no account".
type Address string

// None is the absent account, used where the original system used the zero
// address sentinel.
const None Address = ""

// IsZero reports whether the address is the "no account" sentinel.
func (a Address) IsZero() bool {
	return a == None
}

// String returns the address in its canonical 0x-prefixed form.
func (a Address) String() string {
	return string(a)
}

// Parse validates s and returns it as a canonical Address.
func Parse(s string) (Address, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") {
		return None, fmt.Errorf("address %q: missing 0x prefix", s)
	}
	raw, err := hex.DecodeString(s[2:])
	if err != nil {
		return None, fmt.Errorf("address %q: %w", s, err)
	}
	if len(raw) != AddressLength {
		return None, fmt.Errorf("address %q: want %d bytes, got %d", s, AddressLength, len(raw))
	}
	return Address(s), nil
}

// FromBytes returns the canonical address for 20 raw bytes.
func FromBytes(raw [AddressLength]byte) Address {
	return Address("0x" + hex.EncodeToString(raw[:]))
}

// FromPublicKey derives an address from an Ed25519 public key: the last 20
// bytes of the key's SHA3-256 digest.
func FromPublicKey(pub ed25519.PublicKey) Address {
	sum := sha3.Sum256(pub)
	var raw [AddressLength]byte
	copy(raw[:], sum[32-AddressLength:])
	return FromBytes(raw)
}

// Generate creates a fresh keypair and its derived address. Used by the CLI
// when the caller has no identity configured yet.
func Generate() (Address, ed25519.PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return None, nil, fmt.Errorf("generating account key: %w", err)
	}
	return FromPublicKey(pub), priv, nil
}
