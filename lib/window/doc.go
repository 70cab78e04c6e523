// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package window provides sliding-window buffered access to a
// forward-only byte source. It gives functionality somewhat similar
// to a memory map, but built on plain reads, which makes it usable
// on sockets, pipes, and other sources that cannot seek.
//
// A [Map] owns a growable buffer holding the bytes of one contiguous
// logical region of the source. [Map.Get] serves "at least N bytes
// starting at offset O" requests: when the requested range is already
// resident it returns a view into the buffer with no I/O at all;
// otherwise it slides the window forward, reusing the overlapping
// tail of the previous window and reading only the genuinely new
// bytes from the source.
//
// The caller must visit offsets in non-decreasing order and must not
// skip ahead of data it has not yet been given — the classic
// forward-only cursor contract of a non-seekable source. Seeking is
// used only when a non-sequential read start is unavoidable, and only
// if the source supports it.
package window
