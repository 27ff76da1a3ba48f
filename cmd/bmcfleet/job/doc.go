// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package job implements the "bmcfleet job" subcommand group: fleet
// operations that run through the orchestrator across many machines
// at once, with per-machine failure isolation and job polling.
//
// Every job command prints a run report when the run ends and can
// write it to a file with --report (JSON, CBOR, or text by file
// extension). The exit code is non-zero when any machine did not
// succeed.
package job
