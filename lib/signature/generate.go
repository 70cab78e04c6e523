// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/md4"

	"github.com/signet-sync/signet/lib/rollsum"
	"github.com/signet-sync/signet/lib/window"
)

// DefaultBlockLen is the block length used when the caller does not
// choose one. Larger blocks shrink the signature; smaller blocks let
// the delta stage match finer-grained changes.
const DefaultBlockLen = 2048

// strongSummer computes the strong checksum for one format.
type strongSummer struct {
	// maxLen is the full digest length; a signature may truncate
	// strong sums to fewer bytes but never extend them.
	maxLen uint32

	// newHash constructs the digest function.
	newHash func() hash.Hash
}

// summerFor returns the strong checksum algorithm implied by a
// signature magic.
func summerFor(magic Magic) (strongSummer, error) {
	switch magic {
	case MD4SigMagic:
		return strongSummer{maxLen: md4.Size, newHash: md4.New}, nil
	case Blake2SigMagic:
		return strongSummer{maxLen: blake2b.Size256, newHash: func() hash.Hash {
			// blake2b.New256 fails only for an oversized key; unkeyed
			// use cannot fail.
			h, err := blake2b.New256(nil)
			if err != nil {
				panic("signature: BLAKE2b initialization failed: " + err.Error())
			}
			return h
		}}, nil
	default:
		return strongSummer{}, fmt.Errorf("unknown signature magic %s", magic)
	}
}

// Generate computes the signature of the basis stream r: one record
// per blockLen-sized block (the final block may be short), with the
// rolling weak checksum and the strong checksum selected by magic,
// truncated to strongLen bytes.
//
// A strongLen of 0 selects the algorithm's full digest length.
// blockLen 0 selects [DefaultBlockLen]. An empty basis produces a
// valid signature with zero records.
func Generate(r io.Reader, magic Magic, blockLen, strongLen uint32) (*Signature, error) {
	summer, err := summerFor(magic)
	if err != nil {
		return nil, fmt.Errorf("generating signature: %w", err)
	}
	if blockLen == 0 {
		blockLen = DefaultBlockLen
	}
	if strongLen == 0 {
		strongLen = summer.maxLen
	}
	if strongLen > summer.maxLen {
		return nil, fmt.Errorf("generating signature: strong sum length %d exceeds %s digest length %d", strongLen, magic, summer.maxLen)
	}

	sig := New(magic, blockLen, strongLen, 0)
	strong := summer.newHash()

	// Pull blocks through a sliding window rather than reading
	// directly, so sockets and pipes work and short reads are
	// handled in one place.
	m := window.New(r)
	defer m.Release()

	var offset int64
	var weak rollsum.Rollsum
	for {
		block, _, err := m.Get(offset, int(blockLen))
		if err != nil {
			return nil, fmt.Errorf("generating signature: reading basis at offset %d: %w", offset, err)
		}
		if len(block) == 0 {
			break
		}

		weak.Reset()
		weak.Update(block)

		strong.Reset()
		strong.Write(block)
		sig.AddBlock(weak.Digest(), strong.Sum(nil)[:strongLen])

		offset += int64(len(block))
		if len(block) < int(blockLen) {
			// Short block: the window hit end of input.
			break
		}
	}

	return sig, nil
}
