package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"pixpax/internal/pixpax/issuers"
	"pixpax/internal/pixpax/models"
	"pixpax/internal/pixpax/store/content"
	"pixpax/internal/pixpax/verify"
	"pixpax/internal/platform/objectstore"
)

func runVerifyPack(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("verify-pack", out)
	packFile := fs.String("pack-file", "", "pack document JSON, or - for stdin")
	dataDir := fs.String("data-dir", "", "pebble data directory holding the content store")
	issuersFile := fs.String("issuers-file", "", "issuer registry YAML")
	trustedJSON := fs.String("trusted-keys-json", "", "JSON object of keyId to public key PEM")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "pack-file", "data-dir"); err != nil {
		return err
	}

	raw, err := readFile(*packFile)
	if err != nil {
		return err
	}
	var pack models.Pack
	if err := json.Unmarshal([]byte(raw), &pack); err != nil {
		return fmt.Errorf("%w: pack file: %v", errUsage, err)
	}

	reg := issuers.NewRegistry()
	if *issuersFile != "" {
		if err := reg.LoadYAML(*issuersFile); err != nil {
			return err
		}
	}
	if *trustedJSON != "" {
		if err := reg.ParseTrustedJSON([]byte(*trustedJSON)); err != nil {
			return err
		}
	}

	db, err := objectstore.OpenPebble(*dataDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := verify.New(content.New(db, ""), verify.WithTrustedKeys(reg)).Verify(ctx, pack)
	if err != nil {
		return err
	}
	if err := writeJSON(out, res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("pack rejected: %s", res.Reason)
	}
	return nil
}
