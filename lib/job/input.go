// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"encoding/binary"
	"errors"
)

// Scoop signals. These are internal control-flow values, not caller
// errors: a [Machine] step translates them into a [Status] or a real
// failure according to where in the format they occur.
var (
	// ErrBlocked reports that some, but not enough, bytes were
	// available to complete the scoop. The bytes seen so far are
	// retained in the scoop buffer; the same scoop succeeds once more
	// input arrives. Never a failure.
	ErrBlocked = errors.New("job: need more input")

	// ErrInputEnded reports that zero bytes were available and the
	// input has ended. Whether that is a clean termination or a
	// truncation depends on the state that observed it — only certain
	// state boundaries accept an ended input.
	ErrInputEnded = errors.New("job: input ended")
)

// Input is the byte view handed to each [Machine] step: the bytes
// supplied to the current Drive call, the job-owned scoop buffer
// carrying partial fields across suspensions, and the end-of-input
// flag.
type Input struct {
	data []byte
	pos  int
	eof  bool
	job  *Job
}

// remaining returns the number of unconsumed bytes in the current
// push view.
func (in *Input) remaining() int {
	return len(in.data) - in.pos
}

// Scoop returns exactly n contiguous bytes, consuming them from the
// input. The returned slice is valid only until the next call on
// this Input — it may alias either the caller's push buffer or the
// job's scoop buffer, both of which are reused.
//
// When fewer than n bytes are available, everything available is
// stashed in the scoop buffer and ErrBlocked is returned; the
// suspended scoop resumes where it left off on the next drive. When
// no bytes are available at all and the input has ended, ErrInputEnded
// is returned instead, so states can tell a clean end from a stall.
func (in *Input) Scoop(n int) ([]byte, error) {
	if n <= 0 {
		return in.data[in.pos:in.pos], nil
	}

	buffered := len(in.job.scoop)
	avail := buffered + in.remaining()

	if avail < n {
		if avail == 0 && in.eof {
			return nil, ErrInputEnded
		}
		in.job.scoop = append(in.job.scoop, in.data[in.pos:]...)
		in.pos = len(in.data)
		return nil, ErrBlocked
	}

	// Common case: nothing buffered from a previous suspension, so
	// the bytes come straight out of the push view with no copy.
	if buffered == 0 {
		view := in.data[in.pos : in.pos+n]
		in.pos += n
		return view, nil
	}

	// A suspended scoop resumes: top the buffer up to n bytes and
	// hand it out. Resetting the length (not the backing array) keeps
	// the returned bytes intact until the next scoop reuses them.
	need := n - buffered
	in.job.scoop = append(in.job.scoop, in.data[in.pos:in.pos+need]...)
	in.pos += need
	view := in.job.scoop[:n]
	in.job.scoop = in.job.scoop[:0]
	return view, nil
}

// Uint32 scoops a 4-byte big-endian unsigned integer. This is the
// "suck" helper used for every magic and length field of the wire
// formats. Signals are as for [Input.Scoop]: a partial integer is
// ErrBlocked, zero bytes at end of input is ErrInputEnded.
func (in *Input) Uint32() (uint32, error) {
	b, err := in.Scoop(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}
