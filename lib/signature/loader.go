// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/signet-sync/signet/lib/job"
	"github.com/signet-sync/signet/lib/window"
)

// loadState enumerates the loader's parse steps. Dispatch is a
// switch over this tag, so the set of states and their transitions
// are statically checkable.
type loadState int

const (
	stateMagic loadState = iota
	stateBlockLen
	stateStrongLen
	stateWeak
	stateStrong
)

// Loader parses the signature wire format incrementally. It is a
// [job.Machine]: host it in a [job.Job] and drive it as bytes arrive.
//
// The state chain is magic → block length → strong sum length →
// (weak → strong)*, with the table initialized once the header is
// complete and one record appended per (weak, strong) pair. The only
// valid termination is a clean end of input where a weak sum would
// start; anywhere else, an ended input is a truncation.
type Loader struct {
	state  loadState
	logger *slog.Logger

	// sizeHint is the total byte count of the signature source, when
	// known. Used once, to estimate the record count for pre-sizing.
	sizeHint int64

	magic    Magic
	blockLen uint32
	weak     uint32

	sig  *Signature
	done bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithSizeHint supplies the total byte count of the signature source.
// The loader uses it to pre-size the record table; it does not bound
// or validate the input.
func WithSizeHint(totalBytes int64) LoaderOption {
	return func(l *Loader) {
		l.sizeHint = totalBytes
	}
}

// WithLogger sets the logger for parse diagnostics.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a signature loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// Signature returns the loaded table. It returns nil until loading
// has completed successfully: a partially parsed table is never
// exposed.
func (l *Loader) Signature() *Signature {
	if !l.done {
		return nil
	}
	return l.sig
}

// Step advances the loader by one state. See [job.Machine].
func (l *Loader) Step(in *job.Input) (job.Status, error) {
	switch l.state {
	case stateMagic:
		v, err := in.Uint32()
		if err != nil {
			return l.suspend(err, "signature magic")
		}
		l.magic = Magic(v)
		l.logger.Debug("got signature magic", "magic", l.magic)
		l.state = stateBlockLen
		return job.Running, nil

	case stateBlockLen:
		v, err := in.Uint32()
		if err != nil {
			return l.suspend(err, "block length")
		}
		if v < 1 {
			return job.Blocked, &job.CorruptError{Field: "block length", Value: int64(v)}
		}
		l.logger.Debug("got block length", "block_len", v)
		l.blockLen = v
		l.state = stateStrongLen
		return job.Running, nil

	case stateStrongLen:
		v, err := in.Uint32()
		if err != nil {
			return l.suspend(err, "strong sum length")
		}
		if v > MaxStrongSumLength {
			return job.Blocked, &job.CorruptError{Field: "strong sum length", Value: int64(v)}
		}
		l.logger.Debug("got strong sum length", "strong_len", v)

		// Header complete: initialize the table. When the source's
		// total size is known, estimate the block count from the
		// bytes remaining after the 12-byte header.
		var hint int
		if l.sizeHint > headerSize {
			hint = int((l.sizeHint - headerSize) / int64(4+v))
		}
		l.sig = New(l.magic, l.blockLen, v, hint)
		l.state = stateWeak
		return job.Running, nil

	case stateWeak:
		v, err := in.Uint32()
		if err != nil {
			if errors.Is(err, job.ErrInputEnded) {
				// Ending on a record boundary is the one valid
				// termination.
				l.done = true
				l.logger.Debug("signature loaded", "blocks", len(l.sig.Blocks), "block_len", l.sig.BlockLen)
				return job.Done, nil
			}
			return l.suspend(err, "weak checksum")
		}
		l.weak = v
		l.state = stateStrong
		return job.Running, nil

	case stateStrong:
		strong, err := in.Scoop(int(l.sig.StrongLen))
		if err != nil {
			return l.suspend(err, "strong checksum")
		}
		if l.logger.Enabled(context.Background(), slog.LevelDebug) {
			l.logger.Debug("got block", "weak", fmt.Sprintf("%#x", l.weak), "strong", hex.EncodeToString(strong))
		}
		l.sig.AddBlock(l.weak, strong)
		l.state = stateWeak
		return job.Running, nil

	default:
		return job.Blocked, fmt.Errorf("signature loader in invalid state %d", int(l.state))
	}
}

// suspend translates a scoop signal into a step outcome for states
// where the input is not allowed to end. The returned status is
// meaningful only when the error is nil.
func (l *Loader) suspend(err error, field string) (job.Status, error) {
	if errors.Is(err, job.ErrBlocked) {
		return job.Blocked, nil
	}
	if errors.Is(err, job.ErrInputEnded) {
		return job.Blocked, fmt.Errorf("%w: signature ended before %s", job.ErrTruncated, field)
	}
	return job.Blocked, err
}

// Load reads a complete signature from r, pulling bytes through a
// sliding window. opts apply to the underlying [Loader]; pass
// [WithSizeHint] when the total size is known so the table can be
// pre-sized.
func Load(r io.Reader, opts ...LoaderOption) (*Signature, error) {
	loader := NewLoader(opts...)
	m := window.New(r)
	defer m.Release()

	if err := job.New(loader, loader.logger).RunFrom(m); err != nil {
		return nil, fmt.Errorf("loading signature: %w", err)
	}
	return loader.Signature(), nil
}
