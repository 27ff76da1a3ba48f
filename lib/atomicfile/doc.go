// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile writes output files so readers never see a
// partial write. The content goes to a temporary file in the target's
// directory, is fsynced, and is renamed into place; the directory is
// then synced so the rename survives a power loss.
//
// Run reports and resource snapshots are written this way: a report
// interrupted half-way through would otherwise look like a run with
// fewer machines.
package atomicfile
