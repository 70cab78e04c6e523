// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package job implements a resumable, suspend-on-starvation parsing
// computation. A [Job] hosts a [Machine] — a state machine that
// decodes a byte stream one step at a time — and drives it as input
// arrives, without blocking and without recursion.
//
// The engine is cooperative: when a step cannot complete because not
// enough bytes are available, it reports [Blocked] and control
// returns to the caller immediately. Re-driving the job with more
// input resumes the exact same step; partial bytes already seen are
// held in the job's scoop buffer and are never lost or duplicated
// across suspensions. This makes a Job safe to embed in any
// scheduler: an event loop, a thread per connection, or a plain
// synchronous batch read.
//
// Input can be pushed ([Job.Drive]) as bytes become available, or
// pulled ([Job.RunFrom]) from a sliding window over a byte source.
//
// A Job is single-use and single-threaded: exactly one state is
// active at a time, one driver at a time, and a fatal error fails the
// job permanently.
package job
