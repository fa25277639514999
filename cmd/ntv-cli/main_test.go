package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/six-thirty/ntvnet/account"
)

func TestNewIdentity(t *testing.T) {
	addr, key, err := newIdentity()
	require.NoError(t, err)

	// The printed address is canonical and parses back unchanged.
	parsed, err := account.Parse(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	// The printed key is a full ed25519 private key deriving that address.
	raw, err := hex.DecodeString(key)
	require.NoError(t, err)
	require.Len(t, raw, ed25519.PrivateKeySize)
	priv := ed25519.PrivateKey(raw)
	assert.Equal(t, addr, account.FromPublicKey(priv.Public().(ed25519.PublicKey)))

	other, _, err := newIdentity()
	require.NoError(t, err)
	assert.NotEqual(t, addr, other)
}
