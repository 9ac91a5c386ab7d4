// Command conductor-sign manages plugin signing keys and signs `plugin.wasm`
// binaries (spec §4.16's trust layer): generate a keypair, sign a plugin, and
// add or remove a trusted key from a site's trusted-keys store.
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/relaydev/conductor/plugin/signing"
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "keygen":
		err = cmdKeygen(args[1:])
	case "sign":
		err = cmdSign(args[1:])
	case "trust":
		err = cmdTrust(args[1:])
	case "untrust":
		err = cmdUntrust(args[1:])
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "conductor-sign:", err)
		os.Exit(1)
	}
}

func cmdKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("out", "plugin-signing-key", "output path prefix; writes <out>.pub and <out>")
	fs.Parse(args)

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, []byte(hex.EncodeToString(priv)), 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(*out+".pub", []byte(hex.EncodeToString(pub)), 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote private key to %s (0600) and public key to %s\n", *out, *out+".pub")
	return nil
}

func cmdSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	keyPath := fs.String("key", "", "path to a private key file written by keygen")
	name := fs.String("name", "", "developer name to embed in the signature")
	email := fs.String("email", "", "developer email to embed in the signature")
	fs.Parse(args)
	rest := fs.Args()
	if *keyPath == "" || len(rest) != 1 {
		return fmt.Errorf("usage: conductor-sign sign -key PATH [-name N] [-email E] <plugin.wasm>")
	}

	keyHex, err := os.ReadFile(*keyPath)
	if err != nil {
		return err
	}
	priv, err := hex.DecodeString(string(keyHex))
	if err != nil {
		return fmt.Errorf("malformed private key: %w", err)
	}

	dev := signing.Developer{Name: *name, Email: *email}
	if err := signing.Sign(rest[0], ed25519.PrivateKey(priv), dev); err != nil {
		return err
	}
	fmt.Printf("signed %s -> %s.sig\n", rest[0], rest[0])
	return nil
}

func cmdTrust(args []string) error {
	fs := flag.NewFlagSet("trust", flag.ExitOnError)
	storePath := fs.String("store", defaultStorePath(), "path to the trusted-keys TOML store")
	name := fs.String("name", "", "label for this key")
	email := fs.String("email", "", "contact for this key")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: conductor-sign trust -store PATH <hex-public-key>")
	}

	s, err := signing.LoadStore(*storePath)
	if err != nil {
		return err
	}
	s.Add(signing.TrustedKey{Name: *name, Email: *email, PublicKey: rest[0], AddedAt: time.Now().UTC()})
	if err := s.Save(*storePath); err != nil {
		return err
	}
	fmt.Printf("trusted key %s in %s\n", rest[0], *storePath)
	return nil
}

func cmdUntrust(args []string) error {
	fs := flag.NewFlagSet("untrust", flag.ExitOnError)
	storePath := fs.String("store", defaultStorePath(), "path to the trusted-keys TOML store")
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("usage: conductor-sign untrust -store PATH <hex-public-key>")
	}

	s, err := signing.LoadStore(*storePath)
	if err != nil {
		return err
	}
	if !s.Remove(rest[0]) {
		return fmt.Errorf("key %s was not in the store", rest[0])
	}
	if err := s.Save(*storePath); err != nil {
		return err
	}
	fmt.Printf("untrusted key %s in %s\n", rest[0], *storePath)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: conductor-sign <keygen|sign|trust|untrust> [flags]")
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "trusted-keys.toml"
	}
	return dir + "/conductor/trusted-keys.toml"
}
