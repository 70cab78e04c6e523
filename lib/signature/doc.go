// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package signature implements the block signature of a basis file:
// an ordered table of (weak rolling checksum, strong checksum) pairs
// describing the file's block structure, which the delta search stage
// consumes to find blocks a remote copy already has.
//
// The wire format is the rdiff signature format. All integers are
// 4-byte big-endian:
//
//	[magic:4][block_length:4][strong_sum_length:4]
//	then, repeated until the input ends at a record boundary:
//	[weak_checksum:4][strong_checksum:strong_sum_length]
//
// Three operations cover the format:
//
//   - [Loader] parses the wire form incrementally as a
//     [github.com/signet-sync/signet/lib/job.Machine], suspending
//     cleanly when input runs dry — suitable for sockets and other
//     sources that deliver bytes in arbitrary pieces. [Load] is the
//     convenience pull-based wrapper.
//   - [Signature.WriteTo] encodes a table back to the wire form.
//   - [Generate] computes the signature of a basis stream, pairing
//     the rolling weak checksum with MD4 or BLAKE2b strong sums
//     according to the signature magic.
package signature
