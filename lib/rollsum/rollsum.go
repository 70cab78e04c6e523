// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package rollsum implements the rsync-family rolling checksum: two
// 16-bit accumulators over a window of bytes, cheap to slide forward
// one byte at a time. It is fast and collision-prone — a first-pass
// filter that a strong checksum confirms.
//
// The checksum matches the rdiff wire values: each byte contributes
// with a +31 offset, and the digest packs the accumulators as
// (s2 << 16) | s1.
package rollsum

// charOffset is added to every byte before accumulation. It keeps
// runs of zero bytes from degenerating to a zero checksum.
const charOffset = 31

// Rollsum is the rolling checksum state. The zero value is a valid
// checksum of the empty window.
type Rollsum struct {
	count uint32
	s1    uint32
	s2    uint32
}

// Update absorbs p into the window, as if each byte were rolled in.
func (r *Rollsum) Update(p []byte) {
	for _, c := range p {
		r.s1 += uint32(c) + charOffset
		r.s2 += r.s1
	}
	r.count += uint32(len(p))
}

// Rollin slides the trailing edge of the window forward over c.
func (r *Rollsum) Rollin(c byte) {
	r.s1 += uint32(c) + charOffset
	r.s2 += r.s1
	r.count++
}

// Rollout slides the leading edge of the window forward past out,
// which must be the byte that entered the window count bytes ago.
func (r *Rollsum) Rollout(out byte) {
	r.s1 -= uint32(out) + charOffset
	r.s2 -= r.count * (uint32(out) + charOffset)
	r.count--
}

// Rotate slides the whole window one byte: out leaves at the front,
// in enters at the back. Equivalent to Rollout(out) then Rollin(in)
// but keeps the window size fixed.
func (r *Rollsum) Rotate(out, in byte) {
	r.s1 += uint32(in) - uint32(out)
	r.s2 += r.s1 - r.count*(uint32(out)+charOffset)
}

// Count returns the number of bytes in the window.
func (r *Rollsum) Count() uint32 {
	return r.count
}

// Digest returns the 32-bit checksum of the current window.
func (r *Rollsum) Digest() uint32 {
	return (r.s2 << 16) | (r.s1 & 0xffff)
}

// Reset returns the checksum to the empty-window state.
func (r *Rollsum) Reset() {
	*r = Rollsum{}
}

// Sum returns the checksum of p in one shot.
func Sum(p []byte) uint32 {
	var r Rollsum
	r.Update(p)
	return r.Digest()
}
