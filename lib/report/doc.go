// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package report turns a fleet run summary into an operator-facing
// record.
//
// [FromSummary] flattens a [fleet.Summary] into a [Report] whose fields
// are plain strings, numbers, and times, so the same value serializes
// to every format:
//
//   - [Text]: an aligned table, colored by outcome when the writer is
//     a terminal (lipgloss picks the color profile from the writer).
//   - [JSON]: indented JSON for scripts.
//   - [CBOR]: deterministic CBOR via lib/codec, for archiving runs.
package report
