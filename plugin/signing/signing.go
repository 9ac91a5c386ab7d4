// Package signing implements Ed25519 plugin signing and verification (spec
// §4.16's trust layer). Plugins ship as a pair of files: `plugin.wasm` and a
// `plugin.wasm.sig` JSON sidecar carrying the SHA-256 hash of the binary,
// the signature over that hash, and the signer's public key; a TOML
// trusted-keys store (spec's supplemented feature D.4) decides whether a
// given public key is accepted. Grounded on the original Rust daemon's
// plugin/signing.rs, translated from ed25519-dalek + sha2 to Go's stdlib
// crypto/ed25519 and crypto/sha256 (no signing library appears anywhere in
// the retrieved pack; see DESIGN.md).
package signing

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"time"

	"github.com/relaydev/conductor/errs"
)

const opSign = "signing.Sign"
const opVerify = "signing.Verify"

// Metadata is the `.wasm.sig` sidecar's contents.
type Metadata struct {
	Version    int       `json:"version"`
	Algorithm  string    `json:"algorithm"`
	PluginHash string    `json:"plugin_hash"`
	PluginSize int64     `json:"plugin_size"`
	PublicKey  string    `json:"public_key"`
	Signature  string    `json:"signature"`
	SignedAt   time.Time `json:"signed_at"`
	Developer  Developer `json:"developer"`
}

// Developer names the signer embedded in a signature (spec §4.16).
type Developer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Sign reads pluginPath, hashes it, signs the hash with privateKey, and
// writes a sidecar `<pluginPath>.sig` file.
func Sign(pluginPath string, privateKey ed25519.PrivateKey, dev Developer) error {
	data, err := os.ReadFile(pluginPath)
	if err != nil {
		return errs.Wrap(errs.KindIO, opSign, err)
	}
	if len(privateKey) != ed25519.PrivateKeySize {
		return errs.New(errs.KindValidation, opSign, "invalid Ed25519 private key size")
	}

	hash := sha256.Sum256(data)
	sig := ed25519.Sign(privateKey, hash[:])
	pub := privateKey.Public().(ed25519.PublicKey)

	meta := Metadata{
		Version:    1,
		Algorithm:  "Ed25519",
		PluginHash: hex.EncodeToString(hash[:]),
		PluginSize: int64(len(data)),
		PublicKey:  hex.EncodeToString(pub),
		Signature:  hex.EncodeToString(sig),
		SignedAt:   time.Now().UTC(),
		Developer:  dev,
	}

	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindSecurity, opSign, err)
	}
	if err := os.WriteFile(pluginPath+".sig", out, 0o644); err != nil {
		return errs.Wrap(errs.KindIO, opSign, err)
	}
	return nil
}

// Verify checks that pluginPath's content matches sigPath's recorded hash,
// that the signature over that hash is valid, and that the signing public
// key is in trustedKeys (hex-encoded). An empty trustedKeys accepts any
// validly-signed plugin, matching the original implementation's documented
// "empty trusted keys accepts any signature" behavior — a deployment opting
// out of the trust-chain check entirely, not a bug.
func Verify(pluginPath, sigPath string, trustedKeys []string) error {
	sigData, err := os.ReadFile(sigPath)
	if err != nil {
		return errs.Wrap(errs.KindIO, opVerify, err)
	}
	var meta Metadata
	if err := json.Unmarshal(sigData, &meta); err != nil {
		return errs.Wrap(errs.KindParse, opVerify, err)
	}

	pluginData, err := os.ReadFile(pluginPath)
	if err != nil {
		return errs.Wrap(errs.KindIO, opVerify, err)
	}
	hash := sha256.Sum256(pluginData)
	if hex.EncodeToString(hash[:]) != meta.PluginHash {
		return errs.New(errs.KindSecurity, opVerify, "plugin binary does not match signed hash")
	}

	pub, err := hex.DecodeString(meta.PublicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return errs.New(errs.KindSecurity, opVerify, "invalid public key in signature")
	}
	sig, err := hex.DecodeString(meta.Signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return errs.New(errs.KindSecurity, opVerify, "invalid signature encoding")
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), hash[:], sig) {
		return errs.New(errs.KindSecurity, opVerify, "signature verification failed")
	}

	if len(trustedKeys) == 0 {
		return nil
	}
	for _, k := range trustedKeys {
		if k == meta.PublicKey {
			return nil
		}
	}
	return errs.New(errs.KindSecurity, opVerify, "signing key is not trusted")
}
