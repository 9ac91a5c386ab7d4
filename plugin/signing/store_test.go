package signing

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStoreMissingFileIsEmpty(t *testing.T) {
	s, err := LoadStore(filepath.Join(t.TempDir(), "trusted-keys.toml"))
	require.NoError(t, err)
	assert.Empty(t, s.Keys)
}

func TestAddReplacesExistingKey(t *testing.T) {
	s := &Store{}
	s.Add(TrustedKey{Name: "a", PublicKey: "abc"})
	s.Add(TrustedKey{Name: "a-renamed", PublicKey: "abc"})

	require.Len(t, s.Keys, 1)
	assert.Equal(t, "a-renamed", s.Keys[0].Name)
}

func TestRemoveReportsWhetherKeyExisted(t *testing.T) {
	s := &Store{}
	s.Add(TrustedKey{PublicKey: "abc"})

	assert.True(t, s.Remove("abc"))
	assert.False(t, s.Remove("abc"))
}

func TestSaveAndLoadStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trusted-keys.toml")
	s := &Store{}
	s.Add(TrustedKey{Name: "dev", PublicKey: "abc123"})
	require.NoError(t, s.Save(path))

	loaded, err := LoadStore(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123"}, loaded.PublicKeys())
}
