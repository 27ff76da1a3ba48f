// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package fleet runs one operation across many BMCs.
//
// An operation is a [Task] per machine: a value that walks a fixed
// phase sequence (validate, prepare, pre-submit, submit, post-submit,
// poll, post-completion) against one [redfish.Controller]. Operations
// are built by a [Factory]; the [Runner] connects every [Target],
// drives the phases, polls submitted jobs to a terminal state, and
// reports a [Result] per machine.
//
// A failure in any phase removes only that machine from the batch.
// The set of participating machines shrinks monotonically: a machine
// once removed never re-enters the run.
//
// Three scheduling modes share the per-machine state machine:
//
//   - [Parallel]: one goroutine per machine runs every phase end to
//     end. Workers report through a channel; the runner goroutine
//     alone owns the active set.
//   - [Wave]: every active machine finishes phase k before any starts
//     phase k+1. A single pause follows a wave when any surviving
//     participant asked for one. Polling proceeds in rounds with one
//     interval wait per round.
//   - [Serial]: Wave ordering with the members of a phase run one at
//     a time.
//
// All waits go through the injected [clock.Clock] and end early when
// the run's context is cancelled.
package fleet
