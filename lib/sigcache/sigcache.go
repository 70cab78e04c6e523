// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package sigcache stores loaded signature tables in a compact binary
// sidecar so repeated delta runs against the same basis skip the wire
// parse. The sidecar is a CBOR envelope carrying the table and a
// keyed BLAKE3 fingerprint of the encoded payload; a sidecar that was
// tampered with or truncated is rejected rather than half-loaded.
//
// The envelope uses Core Deterministic Encoding (RFC 8949 §4.2), so
// the same table always produces identical sidecar bytes and the
// fingerprint is stable.
package sigcache

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/signet-sync/signet/lib/signature"
)

// fingerprintKey is the 32-byte BLAKE3 key for sidecar fingerprints.
// Domain separation: a digest computed here can never collide with a
// digest of the same bytes in another context. The value is the
// ASCII domain name, zero-padded.
var fingerprintKey = [32]byte{
	's', 'i', 'g', 'n', 'e', 't', '.', 's', 'i', 'g', 'c', 'a', 'c', 'h', 'e', '.',
	'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't', 0, 0, 0, 0, 0,
}

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding: sorted map keys, smallest integer encoding, no
// indefinite-length items.
var encMode cbor.EncMode

// decMode accepts standard CBOR; unknown fields are ignored for
// forward compatibility.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("sigcache: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("sigcache: CBOR decoder initialization failed: " + err.Error())
	}
}

// payload is the fingerprinted content of a sidecar. Strong sums are
// concatenated into one byte string — they all have the same length,
// so per-record framing would be pure overhead.
type payload struct {
	Magic     uint32   `cbor:"magic"`
	BlockLen  uint32   `cbor:"block_len"`
	StrongLen uint32   `cbor:"strong_len"`
	Weak      []uint32 `cbor:"weak"`
	Strong    []byte   `cbor:"strong"`
}

// envelope is the outer sidecar structure.
type envelope struct {
	Payload     cbor.RawMessage `cbor:"payload"`
	Fingerprint []byte          `cbor:"fingerprint"`
}

// Save writes sig to w as a sidecar.
func Save(w io.Writer, sig *signature.Signature) error {
	p := payload{
		Magic:     uint32(sig.Magic),
		BlockLen:  sig.BlockLen,
		StrongLen: sig.StrongLen,
		Weak:      make([]uint32, 0, len(sig.Blocks)),
		Strong:    make([]byte, 0, len(sig.Blocks)*int(sig.StrongLen)),
	}
	for i, block := range sig.Blocks {
		if uint32(len(block.Strong)) != sig.StrongLen {
			return fmt.Errorf("sigcache: block %d has a %d-byte strong sum, table expects %d", i, len(block.Strong), sig.StrongLen)
		}
		p.Weak = append(p.Weak, block.Weak)
		p.Strong = append(p.Strong, block.Strong...)
	}

	encoded, err := encMode.Marshal(p)
	if err != nil {
		return fmt.Errorf("sigcache: encoding payload: %w", err)
	}

	sidecar, err := encMode.Marshal(envelope{
		Payload:     encoded,
		Fingerprint: fingerprint(encoded),
	})
	if err != nil {
		return fmt.Errorf("sigcache: encoding envelope: %w", err)
	}

	if _, err := w.Write(sidecar); err != nil {
		return fmt.Errorf("sigcache: writing sidecar: %w", err)
	}
	return nil
}

// Open reads a sidecar from r and rebuilds the signature table.
// A fingerprint mismatch — tampering, truncation, or a torn write —
// is an error; no partial table is returned.
func Open(r io.Reader) (*signature.Signature, error) {
	sidecar, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("sigcache: reading sidecar: %w", err)
	}

	var env envelope
	if err := decMode.Unmarshal(sidecar, &env); err != nil {
		return nil, fmt.Errorf("sigcache: decoding envelope: %w", err)
	}

	if !bytes.Equal(env.Fingerprint, fingerprint(env.Payload)) {
		return nil, fmt.Errorf("sigcache: fingerprint mismatch: sidecar is corrupt or was tampered with")
	}

	var p payload
	if err := decMode.Unmarshal(env.Payload, &p); err != nil {
		return nil, fmt.Errorf("sigcache: decoding payload: %w", err)
	}

	if p.BlockLen < 1 {
		return nil, fmt.Errorf("sigcache: cached block length %d is implausible", p.BlockLen)
	}
	if p.StrongLen > signature.MaxStrongSumLength {
		return nil, fmt.Errorf("sigcache: cached strong sum length %d is implausible", p.StrongLen)
	}
	if len(p.Strong) != len(p.Weak)*int(p.StrongLen) {
		return nil, fmt.Errorf("sigcache: %d weak sums but %d strong sum bytes (want %d)", len(p.Weak), len(p.Strong), len(p.Weak)*int(p.StrongLen))
	}

	sig := signature.New(signature.Magic(p.Magic), p.BlockLen, p.StrongLen, len(p.Weak))
	for i, weak := range p.Weak {
		start := i * int(p.StrongLen)
		sig.AddBlock(weak, p.Strong[start:start+int(p.StrongLen)])
	}
	return sig, nil
}

// fingerprint computes the keyed BLAKE3 digest of the encoded
// payload.
func fingerprint(encoded []byte) []byte {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("sigcache: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(encoded)
	return hasher.Sum(nil)
}
