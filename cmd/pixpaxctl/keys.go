package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pixpax/internal/pixpax/signing"
)

type keyOutput struct {
	KeyID         string   `json:"keyId"`
	PublicKeyPEM  string   `json:"publicKeyPem"`
	PrivateKeyPEM string   `json:"privateKeyPem,omitempty"`
	Files         []string `json:"files,omitempty"`
}

func runKeygen(_ context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("keygen", out)
	outDir := fs.String("out-dir", "", "write private.pem and public.pem here instead of printing the private key")
	if err := parse(fs, args); err != nil {
		return err
	}

	key, err := signing.GenerateKey()
	if err != nil {
		return err
	}
	privatePEM, err := signing.PrivateKeyPEM(key)
	if err != nil {
		return err
	}
	publicPEM, err := signing.PublicKeyPEM(&key.PublicKey)
	if err != nil {
		return err
	}
	res := keyOutput{KeyID: signing.KeyID(publicPEM), PublicKeyPEM: publicPEM}

	if *outDir == "" {
		res.PrivateKeyPEM = privatePEM
		return writeJSON(out, res)
	}
	if err := os.MkdirAll(*outDir, 0o700); err != nil {
		return err
	}
	files := map[string]struct {
		body string
		mode os.FileMode
	}{
		"private.pem": {privatePEM + "\n", 0o600},
		"public.pem":  {publicPEM + "\n", 0o644},
	}
	for _, name := range []string{"private.pem", "public.pem"} {
		path := filepath.Join(*outDir, name)
		if err := os.WriteFile(path, []byte(files[name].body), files[name].mode); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		res.Files = append(res.Files, path)
	}
	return writeJSON(out, res)
}

func runKeyID(_ context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("keyid", out)
	pubFile := fs.String("public-key-file", "", "public key PEM file, or - for stdin")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "public-key-file"); err != nil {
		return err
	}
	text, err := readFile(*pubFile)
	if err != nil {
		return err
	}
	pemText := signing.NormalizePublicPEM(text)
	if _, err := signing.ParsePublicKey(pemText); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, signing.KeyID(pemText))
	return err
}
