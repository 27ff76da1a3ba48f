// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides BLAKE3 content digests for files bmcfleet
// handles: license files installed on BMCs and resource snapshots
// written for diagnostics.
//
// Digests are keyed per [Domain] so that the same bytes hashed as a
// license and as a snapshot never produce the same value.
//
//   - [Sum] hashes a byte slice
//   - [File] streams a file with constant memory
//   - [Digest.String] and [Parse] convert to and from the canonical
//     hex form used in logs and reports
//
// This package has no dependencies on other bmcfleet packages.
package digest
