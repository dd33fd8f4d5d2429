package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pixpax/internal/pixpax/signing"
)

// KeyPair is a fresh P-256 signer together with its private PEM.
type KeyPair struct {
	*signing.Signer
	PrivatePEM string
}

func NewKeyPair(t testing.TB) KeyPair {
	t.Helper()
	key, err := signing.GenerateKey()
	require.NoError(t, err)
	privatePEM, err := signing.PrivateKeyPEM(key)
	require.NoError(t, err)
	signer, err := signing.NewSignerFromKey(key, "")
	require.NoError(t, err)
	return KeyPair{Signer: signer, PrivatePEM: privatePEM}
}
