// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/signet-sync/signet/lib/signature"
)

// profile supplies default signature parameters. It is loaded from a
// single YAML file named by the SIGNET_PROFILE environment variable
// or the --profile flag — no search paths or automatic discovery, so
// the parameters in effect are always auditable. Flags override
// profile values, which override built-in defaults.
type profile struct {
	// Format selects the strong sum algorithm: "blake2" (default)
	// or "md4".
	Format string `yaml:"format"`

	// BlockLen is the basis block length in bytes.
	BlockLen uint32 `yaml:"block_len"`

	// StrongLen is the strong checksum length in bytes; 0 means the
	// algorithm's full digest length.
	StrongLen uint32 `yaml:"strong_len"`
}

// loadProfile reads the profile at path, falling back to the
// SIGNET_PROFILE environment variable and then to an empty profile.
func loadProfile(path string) (*profile, error) {
	if path == "" {
		path = os.Getenv("SIGNET_PROFILE")
	}
	if path == "" {
		return &profile{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	switch p.Format {
	case "", "blake2", "md4":
	default:
		return nil, fmt.Errorf("profile %s: unknown format %q (want blake2 or md4)", path, p.Format)
	}
	return &p, nil
}

// resolve combines flag values with the profile: explicit flags win,
// then profile values, then built-in defaults.
func (p *profile) resolve(useMD4 bool, blockLen, strongLen uint32) (signature.Magic, uint32, uint32) {
	magic := signature.Blake2SigMagic
	if p.Format == "md4" {
		magic = signature.MD4SigMagic
	}
	if useMD4 {
		magic = signature.MD4SigMagic
	}

	if blockLen == 0 {
		blockLen = p.BlockLen
	}
	if strongLen == 0 {
		strongLen = p.StrongLen
	}
	return magic, blockLen, strongLen
}
