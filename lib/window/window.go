// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"errors"
	"fmt"
	"io"
)

// Window sizing constants. These are system invariants, not tunables:
// the chunk size sets the alignment granularity of window starts, and
// the maximum window size bounds how much history is kept resident
// ahead of and behind the read cursor.
const (
	// chunkSize is the granularity for aligning window starts. The
	// window start is rounded back by up to two chunks so that a
	// caller re-reading slightly behind its cursor (as the delta
	// search loop does) still hits the fast path. Must be a power
	// of two.
	chunkSize = 32 * 1024

	// maxWindowSize is the default window size. A window grows past
	// this only when a single request spans more than this many bytes
	// from the aligned window start.
	maxWindowSize = 256 * 1024
)

// ErrInvalidRequest is returned by [Map.Get] for a zero or negative
// requested length.
var ErrInvalidRequest = errors.New("window: requested length must be positive")

// Map provides sliding-window access to a forward-only byte source.
// It owns a growable backing buffer holding one contiguous logical
// region of the source, and tracks the source's true read cursor to
// avoid redundant seeks on sequential access.
//
// A Map is single-owner: one logical reader drives [Map.Get] calls at
// a time. Create one with [New].
type Map struct {
	src io.Reader

	// buf is the backing buffer. len(buf) is the allocated capacity;
	// only winLen bytes are valid source data.
	buf []byte

	// winStart is the logical source offset of buf[0].
	winStart int64

	// winLen is the number of valid bytes in buf.
	winLen int

	// srcOffset is the true read cursor of src. Reads advance it;
	// it lets Get skip the seek when the next read is sequential,
	// which is the only case that ever occurs for stream sources.
	srcOffset int64
}

// New creates a Map over the given source. The source's read cursor
// is assumed to be at offset 0. For non-seekable sources this is
// trivially true; for seekable sources the caller must not have read
// from them already.
//
// The Map never closes the source — its lifetime is the caller's
// concern.
func New(r io.Reader) *Map {
	return &Map{src: r}
}

// Get returns a view of at least 1 and at most want bytes of the
// source starting at the given logical offset. The returned slice is
// borrowed: it points into the Map's backing buffer and is valid only
// until the next call to Get, which may move or reallocate the buffer
// under it.
//
// If the source ends before want bytes are available, the view is
// shortened to the bytes that exist and eof is true. A request made
// entirely at or past the end of the source returns an empty view
// with eof true.
//
// Offsets must be visited in non-decreasing order without skipping
// ahead of data not yet returned; violating this on a non-seekable
// source is unrecoverable.
func (m *Map) Get(offset int64, want int) (data []byte, eof bool, err error) {
	if want <= 0 {
		return nil, false, ErrInvalidRequest
	}

	// Fast path: the requested range is already resident. Closed-open
	// interval check; no I/O, no copy.
	if offset >= m.winStart && offset+int64(want) <= m.winStart+int64(m.winLen) {
		p := offset - m.winStart
		return m.buf[p : p+int64(want)], false, nil
	}

	// Compute the new window: start at the request rounded back by up
	// to two chunks, aligned down to a chunk boundary, so a little
	// history stays addressable behind the cursor.
	var windowStart int64
	if offset > 2*chunkSize {
		windowStart = (offset - 2*chunkSize) &^ (chunkSize - 1)
	}
	windowSize := int64(maxWindowSize)
	if offset+int64(want) > windowStart+windowSize {
		windowSize = offset + int64(want) - windowStart
	}

	// Grow the backing buffer if the new window exceeds capacity. The
	// old valid bytes are carried over; whether any of them survive is
	// decided by the overlap step below.
	if windowSize > int64(len(m.buf)) {
		grown := make([]byte, windowSize)
		copy(grown, m.buf[:m.winLen])
		m.buf = grown
	}

	// Overlap reuse: when the new window starts inside the old
	// resident region and extends past its end, the still-valid tail
	// of the old region moves to the front of the buffer and only the
	// genuinely new bytes are read. Otherwise the whole window is
	// read fresh.
	var readStart int64
	var readOffset, readSize int
	oldEnd := m.winStart + int64(m.winLen)
	if windowStart >= m.winStart && windowStart < oldEnd && windowStart+windowSize >= oldEnd {
		readStart = oldEnd
		readOffset = int(readStart - windowStart)
		readSize = int(windowSize) - readOffset
		copy(m.buf, m.buf[m.winLen-readOffset:m.winLen])
	} else {
		readStart = windowStart
		readSize = int(windowSize)
	}

	if readSize <= 0 {
		// The window invariants guarantee a positive fresh-read size;
		// reaching this means the bookkeeping is inconsistent. Fail
		// rather than loop.
		return nil, false, fmt.Errorf("window: internal error: computed read size %d for offset %d", readSize, offset)
	}

	// Seek only when the source cursor is not already at the read
	// start. Sequential access — the common case — never seeks.
	if m.srcOffset != readStart {
		seeker, ok := m.src.(io.Seeker)
		if !ok {
			return nil, false, fmt.Errorf("window: source cursor at %d but read needs offset %d and source cannot seek", m.srcOffset, readStart)
		}
		pos, err := seeker.Seek(readStart, io.SeekStart)
		if err != nil {
			return nil, false, fmt.Errorf("window: seeking source to offset %d: %w", readStart, err)
		}
		if pos != readStart {
			return nil, false, fmt.Errorf("window: seek landed at offset %d, want %d", pos, readStart)
		}
		m.srcOffset = readStart
	}

	// Fill loop: accumulate into the new tail until the full amount
	// is read, a zero-byte read signals end of input, or the source
	// reports an error. Partial reads are normal for stream sources.
	totalRead := 0
	for totalRead < readSize {
		n, readErr := m.src.Read(m.buf[readOffset+totalRead : readOffset+readSize])
		totalRead += n
		if readErr == io.EOF || (n == 0 && readErr == nil) {
			eof = true
			break
		}
		if readErr != nil {
			// Keep the bookkeeping consistent with the bytes that did
			// arrive, then surface the failure. A read error is never
			// treated as end of input.
			m.srcOffset += int64(totalRead)
			m.winStart = windowStart
			m.winLen = readOffset + totalRead
			return nil, false, fmt.Errorf("window: reading %d bytes at offset %d: %w", readSize, readStart, readErr)
		}
	}

	m.srcOffset += int64(totalRead)
	m.winStart = windowStart

	// Valid data is the preserved head from the old window plus what
	// was just read.
	m.winLen = readOffset + totalRead

	// Cap the caller's length to the bytes actually available from
	// the requested offset onward.
	avail := m.winLen - int(offset-m.winStart)
	if avail < 0 {
		avail = 0
	}
	if avail < want {
		want = avail
	}

	p := offset - m.winStart
	return m.buf[p : p+int64(want)], eof, nil
}

// Release drops the backing buffer, returning its memory to the
// allocator on the next collection. The source is not closed. The
// Map must not be used after Release.
func (m *Map) Release() {
	m.buf = nil
	m.winLen = 0
}
