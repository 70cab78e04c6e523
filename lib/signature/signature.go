// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic identifies a signature format and, with it, the strong
// checksum algorithm used for its blocks.
type Magic uint32

const (
	// MD4SigMagic marks a signature whose strong checksums are MD4
	// digests (at most 16 bytes). The historical format; kept for
	// interoperability with old streams.
	MD4SigMagic Magic = 0x72730136

	// Blake2SigMagic marks a signature whose strong checksums are
	// BLAKE2b-256 digests (at most 32 bytes). The default.
	Blake2SigMagic Magic = 0x72730137
)

// String returns the magic in the form it appears in diagnostics.
func (m Magic) String() string {
	switch m {
	case MD4SigMagic:
		return "md4"
	case Blake2SigMagic:
		return "blake2"
	default:
		return fmt.Sprintf("%#x", uint32(m))
	}
}

const (
	// MaxStrongSumLength is the upper bound on the strong checksum
	// length of any signature format. A stream claiming more is
	// corrupt.
	MaxStrongSumLength = 32

	// headerSize is the fixed wire header: magic, block length, and
	// strong sum length, 4 bytes each.
	headerSize = 12
)

// Block is one signature record: the checksums of one block of the
// basis file. Blocks appear in file order, so the i-th record covers
// bytes [i*BlockLen, (i+1)*BlockLen) of the basis.
type Block struct {
	// Weak is the rolling checksum of the block. Fast and
	// collision-prone; a first-pass filter only.
	Weak uint32

	// Strong is the strong checksum of the block, exactly
	// StrongLen bytes. Confirms a weak match.
	Strong []byte
}

// Signature is the in-memory signature table of a basis file.
type Signature struct {
	// Magic is the format identifier the table was read or built with.
	Magic Magic

	// BlockLen is the basis block length in bytes. Always >= 1.
	BlockLen uint32

	// StrongLen is the length of every block's strong checksum.
	// Fixed for the whole table; at most MaxStrongSumLength.
	StrongLen uint32

	// Blocks are the records in basis-file order.
	Blocks []Block
}

// New creates an empty signature table. blockHint, when positive,
// pre-sizes the record storage for the expected number of blocks.
func New(magic Magic, blockLen, strongLen uint32, blockHint int) *Signature {
	sig := &Signature{
		Magic:     magic,
		BlockLen:  blockLen,
		StrongLen: strongLen,
	}
	if blockHint > 0 {
		sig.Blocks = make([]Block, 0, blockHint)
	}
	return sig
}

// AddBlock appends one record. The strong sum is copied into storage
// owned by the table, so callers may pass a transient view.
func (s *Signature) AddBlock(weak uint32, strong []byte) {
	owned := make([]byte, len(strong))
	copy(owned, strong)
	s.Blocks = append(s.Blocks, Block{Weak: weak, Strong: owned})
}

// WriteTo encodes the table in the wire format. It implements
// [io.WriterTo].
func (s *Signature) WriteTo(w io.Writer) (int64, error) {
	var written int64

	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[0:], uint32(s.Magic))
	binary.BigEndian.PutUint32(header[4:], s.BlockLen)
	binary.BigEndian.PutUint32(header[8:], s.StrongLen)
	n, err := w.Write(header[:])
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("writing signature header: %w", err)
	}

	var weak [4]byte
	for i, block := range s.Blocks {
		if uint32(len(block.Strong)) != s.StrongLen {
			return written, fmt.Errorf("block %d has a %d-byte strong sum, table expects %d", i, len(block.Strong), s.StrongLen)
		}

		binary.BigEndian.PutUint32(weak[:], block.Weak)
		n, err := w.Write(weak[:])
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("writing block %d weak sum: %w", i, err)
		}

		n, err = w.Write(block.Strong)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("writing block %d strong sum: %w", i, err)
		}
	}

	return written, nil
}

// WireSize returns the encoded size of the table in bytes.
func (s *Signature) WireSize() int64 {
	return headerSize + int64(len(s.Blocks))*int64(4+s.StrongLen)
}

// Equal reports whether two tables are identical: same format
// parameters, same records in the same order.
func (s *Signature) Equal(o *Signature) bool {
	if s.Magic != o.Magic || s.BlockLen != o.BlockLen || s.StrongLen != o.StrongLen {
		return false
	}
	if len(s.Blocks) != len(o.Blocks) {
		return false
	}
	for i := range s.Blocks {
		if s.Blocks[i].Weak != o.Blocks[i].Weak {
			return false
		}
		if string(s.Blocks[i].Strong) != string(o.Blocks[i].Strong) {
			return false
		}
	}
	return true
}
