// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package job

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/signet-sync/signet/lib/window"
)

// Status is the outcome of driving a job or a single machine step.
type Status int

const (
	// Running means the step completed and more work remains.
	Running Status = iota

	// Blocked means the current step needs more input before it can
	// complete. Not an error: re-drive with more bytes.
	Blocked

	// Done means the machine reached its terminal state. The job is
	// complete and must not be driven further.
	Done
)

// String returns the status name for diagnostics.
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrTruncated reports that the input ended in the middle of a field
// or record: the machine was still waiting for bytes when the final
// end of input arrived. Fatal to the job.
var ErrTruncated = errors.New("job: input truncated mid-record")

// CorruptError reports that a parsed value violates a validity
// constraint of the format. Fatal to the job. The diagnostic names
// the offending field and carries the value that was read.
type CorruptError struct {
	// Field is the wire-format field whose value is invalid.
	Field string

	// Value is the invalid value as read from the stream.
	Value int64
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("job: corrupt input: %s %d is implausible", e.Field, e.Value)
}

// Machine is a parsing state machine hosted by a [Job]. Step runs the
// machine's current state exactly once: it scoops the bytes that
// state needs from in, advances to the next state, and reports
// whether the machine is still running, blocked on input, or done.
//
// A step must be atomic with respect to suspension: on [Blocked] it
// leaves the current state unchanged and mutates nothing beyond what
// it already validated, so the same state re-runs when input resumes.
type Machine interface {
	Step(in *Input) (Status, error)
}

// Stats are a job's read-only running counters.
type Stats struct {
	// InBytes is the total number of input bytes consumed.
	InBytes int64

	// Steps is the number of machine steps executed.
	Steps int64
}

// Job drives a [Machine] incrementally as input arrives. Create one
// with [New], then either push bytes with [Job.Drive] or pull them
// from a source with [Job.RunFrom].
type Job struct {
	machine Machine
	logger  *slog.Logger

	// scoop accumulates partial fields across suspensions. It only
	// ever holds fewer bytes than the current state needs.
	scoop []byte

	status Status
	err    error
	stats  Stats
}

// New creates a job hosting the given machine. A nil logger disables
// diagnostics.
func New(machine Machine, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Job{machine: machine, logger: logger}
}

// Stats returns the job's counters.
func (j *Job) Stats() Stats {
	return j.stats
}

// Err returns the fatal error that failed the job, or nil.
func (j *Job) Err() error {
	return j.err
}

// Drive feeds the job newly available input and runs machine steps
// until the input is exhausted, the job completes, or a fatal error
// occurs. atEOF tells the job that no input will ever follow the
// given bytes; pass it on the final call (the final call may carry
// zero bytes).
//
// Drive consumes all of in on every non-error return: bytes a step
// could not use yet are buffered internally, so the caller never
// re-feeds data. The returned status is [Blocked] when more input is
// needed, [Done] when the machine finished.
//
// After a fatal error the job is permanently failed and every further
// Drive returns the same error.
func (j *Job) Drive(in []byte, atEOF bool) (Status, error) {
	if j.err != nil {
		return j.status, j.err
	}
	if j.status == Done {
		return Done, nil
	}

	input := &Input{data: in, eof: atEOF, job: j}
	for {
		status, err := j.machine.Step(input)
		j.stats.Steps++

		if err != nil {
			j.fail(err)
			return j.consumed(input, Blocked), err
		}

		switch status {
		case Done:
			j.status = Done
			j.logger.Debug("job complete", "in_bytes", j.stats.InBytes+int64(input.pos), "steps", j.stats.Steps)
			return j.consumed(input, Done), nil

		case Blocked:
			if atEOF {
				// Everything that will ever arrive has arrived, and
				// the machine is still mid-field.
				err := fmt.Errorf("%w (%d byte(s) pending)", ErrTruncated, len(j.scoop))
				j.fail(err)
				return j.consumed(input, Blocked), err
			}
			return j.consumed(input, Blocked), nil

		case Running:
			// Next state, same input.

		default:
			err := fmt.Errorf("job: machine returned invalid status %v", status)
			j.fail(err)
			return j.consumed(input, Blocked), err
		}
	}
}

// RunFrom drives the job to completion by pulling bytes from a
// sliding window over a byte source. Views borrowed from the window
// are fully consumed (or copied into the scoop buffer) before the
// next pull, so window reuse never invalidates pending bytes.
func (j *Job) RunFrom(m *window.Map) error {
	const pull = 32 * 1024

	var offset int64
	for {
		view, eof, err := m.Get(offset, pull)
		if err != nil {
			err = fmt.Errorf("job: pulling input at offset %d: %w", offset, err)
			j.fail(err)
			return err
		}

		// The window reports end-of-source as soon as its fill loop
		// observes it, which can happen while bytes beyond this view
		// are still resident. The input is final only once a pull
		// comes back short: a full view means another pull is needed
		// to drain the window.
		final := eof && len(view) < pull

		status, err := j.Drive(view, final)
		if err != nil {
			return err
		}
		offset += int64(len(view))

		if status == Done {
			return nil
		}
	}
}

// consumed folds the bytes used by the current drive into the stats
// and records the resulting status.
func (j *Job) consumed(in *Input, status Status) Status {
	j.stats.InBytes += int64(in.pos)
	in.data = nil
	in.pos = 0
	if j.err == nil {
		j.status = status
	}
	return status
}

// fail marks the job permanently failed.
func (j *Job) fail(err error) {
	if j.err == nil {
		j.err = err
		j.logger.Debug("job failed", "error", err)
	}
}
