// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/signet-sync/signet/lib/job"
)

// buildWire encodes a signature stream by hand, independent of
// Signature.WriteTo, so encoder and decoder cannot share a bug.
func buildWire(magic Magic, blockLen, strongLen uint32, records ...[]byte) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, uint32(magic))
	binary.Write(&buf, binary.BigEndian, blockLen)
	binary.Write(&buf, binary.BigEndian, strongLen)
	for _, r := range records {
		buf.Write(r)
	}
	return buf.Bytes()
}

func record(weak uint32, strong string) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, weak)
	buf.WriteString(strong)
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	sig := New(Blake2SigMagic, 700, 16, 2)
	sig.AddBlock(0x1, []byte(strings.Repeat("0", 16)))
	sig.AddBlock(0x2, []byte(strings.Repeat("1", 16)))

	var wire bytes.Buffer
	n, err := sig.WriteTo(&wire)
	if err != nil {
		t.Fatal(err)
	}
	if n != sig.WireSize() {
		t.Errorf("WriteTo wrote %d bytes, WireSize says %d", n, sig.WireSize())
	}

	loaded, err := Load(bytes.NewReader(wire.Bytes()), WithSizeHint(int64(wire.Len())))
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Equal(sig) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, sig)
	}
}

func TestLoadEmptyTable(t *testing.T) {
	// Header only: valid, zero blocks.
	wire := buildWire(Blake2SigMagic, 2048, 32)
	sig, err := Load(bytes.NewReader(wire))
	if err != nil {
		t.Fatal(err)
	}
	if len(sig.Blocks) != 0 {
		t.Errorf("got %d blocks, want 0", len(sig.Blocks))
	}
	if sig.Magic != Blake2SigMagic || sig.BlockLen != 2048 || sig.StrongLen != 32 {
		t.Errorf("header mismatch: %+v", sig)
	}
}

func TestLoadUnknownMagicAccepted(t *testing.T) {
	// The loader records the magic without validating it; format
	// dispatch happens downstream.
	wire := buildWire(Magic(0xdeadbeef), 512, 8, record(0x42, "ssssssss"))
	sig, err := Load(bytes.NewReader(wire))
	if err != nil {
		t.Fatal(err)
	}
	if sig.Magic != Magic(0xdeadbeef) {
		t.Errorf("magic = %v, want %#x", sig.Magic, uint32(0xdeadbeef))
	}
}

func TestLoadCorruptBlockLength(t *testing.T) {
	wire := buildWire(Blake2SigMagic, 0, 32, record(0x1, strings.Repeat("s", 32)))

	loader := NewLoader()
	j := job.New(loader, nil)
	_, err := j.Drive(wire, true)

	var corrupt *job.CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("error = %v, want CorruptError", err)
	}
	if corrupt.Field != "block length" || corrupt.Value != 0 {
		t.Errorf("diagnostic = %+v, want block length 0", corrupt)
	}

	// Exactly the magic and the bad length were consumed; nothing
	// beyond the offending field.
	if got := j.Stats().InBytes; got != 8 {
		t.Errorf("consumed %d bytes, want 8", got)
	}
	if loader.Signature() != nil {
		t.Error("partial table exposed after corruption")
	}
}

func TestLoadCorruptStrongSumLength(t *testing.T) {
	wire := buildWire(Blake2SigMagic, 2048, MaxStrongSumLength+1)

	loader := NewLoader()
	j := job.New(loader, nil)
	_, err := j.Drive(wire, true)

	var corrupt *job.CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("error = %v, want CorruptError", err)
	}
	if corrupt.Field != "strong sum length" || corrupt.Value != MaxStrongSumLength+1 {
		t.Errorf("diagnostic = %+v, want strong sum length %d", corrupt, MaxStrongSumLength+1)
	}
	if got := j.Stats().InBytes; got != 12 {
		t.Errorf("consumed %d bytes, want 12", got)
	}
}

func TestLoadZeroStrongSumLength(t *testing.T) {
	// Length 0 is inside the valid range: records are weak sums only.
	wire := buildWire(Blake2SigMagic, 512, 0, record(0xaa, ""), record(0xbb, ""))
	sig, err := Load(bytes.NewReader(wire))
	if err != nil {
		t.Fatal(err)
	}
	if len(sig.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(sig.Blocks))
	}
	if sig.Blocks[0].Weak != 0xaa || sig.Blocks[1].Weak != 0xbb {
		t.Errorf("weak sums = %#x, %#x", sig.Blocks[0].Weak, sig.Blocks[1].Weak)
	}
}

func TestLoadTruncation(t *testing.T) {
	full := buildWire(Blake2SigMagic, 700, 16,
		record(0x1, strings.Repeat("0", 16)),
		record(0x2, strings.Repeat("1", 16)))

	tests := []struct {
		name string
		cut  int // bytes removed from the end
	}{
		{"mid magic", len(full) - 2},
		{"after magic", len(full) - 4},
		{"mid block length", len(full) - 6},
		{"mid header", len(full) - 10},
		{"mid weak sum", 18},
		{"mid strong sum", 7},
		{"end of weak sum", 16},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			wire := full[:len(full)-test.cut]
			loader := NewLoader()
			_, err := job.New(loader, nil).Drive(wire, true)
			if !errors.Is(err, job.ErrTruncated) {
				t.Fatalf("error = %v, want ErrTruncated", err)
			}
			if loader.Signature() != nil {
				t.Error("partial table exposed after truncation")
			}
		})
	}
}

func TestLoadEmptyStream(t *testing.T) {
	loader := NewLoader()
	_, err := job.New(loader, nil).Drive(nil, true)
	if !errors.Is(err, job.ErrTruncated) {
		t.Fatalf("error = %v, want ErrTruncated for an empty stream", err)
	}
}

func TestLoaderResumability(t *testing.T) {
	wire := buildWire(Blake2SigMagic, 700, 16,
		record(0x1, strings.Repeat("0", 16)),
		record(0x2, strings.Repeat("1", 16)))

	// All at once.
	wantSig, err := Load(bytes.NewReader(wire))
	if err != nil {
		t.Fatal(err)
	}

	// One byte at a time: Blocked after every byte, identical table
	// at the end.
	loader := NewLoader()
	j := job.New(loader, nil)
	for i, b := range wire {
		status, err := j.Drive([]byte{b}, false)
		if err != nil {
			t.Fatalf("byte %d: %v", i, err)
		}
		if status != job.Blocked {
			t.Fatalf("byte %d: status = %v, want blocked", i, status)
		}
	}
	status, err := j.Drive(nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if status != job.Done {
		t.Fatalf("final status = %v, want done", status)
	}

	if got := loader.Signature(); !got.Equal(wantSig) {
		t.Fatalf("byte-at-a-time table differs from all-at-once table:\n got %+v\nwant %+v", got, wantSig)
	}
}

func TestLoadSizeHintPresizing(t *testing.T) {
	records := make([][]byte, 50)
	for i := range records {
		records[i] = record(uint32(i), strings.Repeat("x", 16))
	}
	wire := buildWire(Blake2SigMagic, 700, 16, records...)

	sig, err := Load(bytes.NewReader(wire), WithSizeHint(int64(len(wire))))
	if err != nil {
		t.Fatal(err)
	}
	if len(sig.Blocks) != 50 {
		t.Fatalf("got %d blocks, want 50", len(sig.Blocks))
	}
	// The hint is exact for a well-formed stream, so no growth
	// beyond the initial allocation should have happened.
	if cap(sig.Blocks) != 50 {
		t.Errorf("cap(Blocks) = %d, want exactly the hinted 50", cap(sig.Blocks))
	}
}

func TestLoadSpansMultipleWindowPulls(t *testing.T) {
	// Signatures larger than one pull of the driver, and larger than
	// the sliding window itself, must load completely.
	tests := []struct {
		name   string
		blocks int
	}{
		{"several pulls", 3000},       // ~59 KiB wire
		{"beyond window size", 15000}, // ~293 KiB wire
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			records := make([][]byte, test.blocks)
			for i := range records {
				records[i] = record(uint32(i), strings.Repeat("x", 16))
			}
			wire := buildWire(Blake2SigMagic, 700, 16, records...)

			sig, err := Load(bytes.NewReader(wire))
			if err != nil {
				t.Fatal(err)
			}
			if len(sig.Blocks) != test.blocks {
				t.Fatalf("got %d blocks, want %d", len(sig.Blocks), test.blocks)
			}
			if last := sig.Blocks[test.blocks-1].Weak; last != uint32(test.blocks-1) {
				t.Errorf("last weak sum = %#x, want %#x", last, test.blocks-1)
			}
		})
	}
}

func TestLoadRecordBoundaryAtPullBoundary(t *testing.T) {
	// With 15-byte strong sums the 1724th record ends exactly 32 KiB
	// into the stream, on a view boundary of the pull driver. Every
	// record past that point must still be loaded, not dropped as a
	// premature clean end.
	const blocks = 2000
	records := make([][]byte, blocks)
	for i := range records {
		records[i] = record(uint32(i), strings.Repeat("y", 15))
	}
	wire := buildWire(Blake2SigMagic, 700, 15, records...)

	sig, err := Load(bytes.NewReader(wire))
	if err != nil {
		t.Fatal(err)
	}
	if len(sig.Blocks) != blocks {
		t.Fatalf("got %d blocks, want %d", len(sig.Blocks), blocks)
	}
	if last := sig.Blocks[blocks-1].Weak; last != blocks-1 {
		t.Errorf("last weak sum = %#x, want %#x", last, blocks-1)
	}
}

// chunkyReader delivers at most a few bytes per Read, like a slow
// socket.
type chunkyReader struct {
	data []byte
	pos  int
}

func (r *chunkyReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, nil
	}
	limit := 3
	if limit > len(p) {
		limit = len(p)
	}
	n := copy(p[:limit], r.data[r.pos:])
	r.pos += n
	return n, nil
}

func TestLoadFromNonSeekableChunkySource(t *testing.T) {
	wire := buildWire(MD4SigMagic, 512, 8,
		record(0x10, "aaaaaaaa"),
		record(0x20, "bbbbbbbb"),
		record(0x30, "cccccccc"))

	sig, err := Load(&chunkyReader{data: wire})
	if err != nil {
		t.Fatal(err)
	}
	if len(sig.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(sig.Blocks))
	}
	if sig.Magic != MD4SigMagic {
		t.Errorf("magic = %v, want md4", sig.Magic)
	}
}

func TestWriteToRejectsInconsistentStrongLen(t *testing.T) {
	sig := New(Blake2SigMagic, 700, 16, 0)
	sig.AddBlock(0x1, []byte("too short"))

	if _, err := sig.WriteTo(&bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for a strong sum shorter than the table length")
	}
}
