package signing

import (
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePlugin(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugin.wasm")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	path := writePlugin(t, []byte("fake wasm bytes"))
	require.NoError(t, Sign(path, priv, Developer{Name: "dev"}))

	err = Verify(path, path+".sig", []string{hex.EncodeToString(pub)})
	assert.NoError(t, err)
}

func TestVerifyRejectsTamperedBinary(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	path := writePlugin(t, []byte("fake wasm bytes"))
	require.NoError(t, Sign(path, priv, Developer{}))

	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0o644))

	err = Verify(path, path+".sig", nil)
	assert.Error(t, err)
}

func TestVerifyRejectsUntrustedKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	path := writePlugin(t, []byte("fake wasm bytes"))
	require.NoError(t, Sign(path, priv, Developer{}))

	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	err = Verify(path, path+".sig", []string{hex.EncodeToString(otherPub)})
	assert.Error(t, err)
}

func TestVerifyEmptyTrustedKeysAcceptsAnyValidSignature(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	path := writePlugin(t, []byte("fake wasm bytes"))
	require.NoError(t, Sign(path, priv, Developer{}))

	assert.NoError(t, Verify(path, path+".sig", nil))
}
