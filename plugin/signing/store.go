package signing

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/relaydev/conductor/errs"
)

const opStore = "signing.Store"

// TrustedKey is one entry in the trusted-keys store (spec's supplemented
// feature D.4: trusted keys persisted as TOML rather than the original's
// implied JSON, to match this daemon's config format throughout).
type TrustedKey struct {
	Name      string    `toml:"name"`
	Email     string    `toml:"email"`
	PublicKey string    `toml:"public_key"`
	AddedAt   time.Time `toml:"added_at"`
}

// Store is the on-disk trusted-keys list.
type Store struct {
	Keys []TrustedKey `toml:"trusted_keys"`
}

// LoadStore reads a trusted-keys TOML file. A missing file yields an empty
// Store, not an error (no keys trusted yet is the default state).
func LoadStore(path string) (*Store, error) {
	var s Store
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &s, nil
	}
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, errs.Wrap(errs.KindParse, opStore, err)
	}
	return &s, nil
}

// Save writes the store back to path.
func (s *Store) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errs.Wrap(errs.KindIO, opStore, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		return errs.Wrap(errs.KindIO, opStore, err)
	}
	return nil
}

// Add trusts a new public key, replacing any existing entry with the same key.
func (s *Store) Add(k TrustedKey) {
	for i, existing := range s.Keys {
		if existing.PublicKey == k.PublicKey {
			s.Keys[i] = k
			return
		}
	}
	s.Keys = append(s.Keys, k)
}

// Remove untrusts a public key. It reports whether a key was removed.
func (s *Store) Remove(publicKey string) bool {
	for i, k := range s.Keys {
		if k.PublicKey == publicKey {
			s.Keys = append(s.Keys[:i], s.Keys[i+1:]...)
			return true
		}
	}
	return false
}

// PublicKeys returns the hex-encoded public keys in the store, for passing
// to Verify.
func (s *Store) PublicKeys() []string {
	out := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		out[i] = k.PublicKey
	}
	return out
}
