// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot captures a BMC's Redfish resource tree for offline
// diagnosis.
//
// [Collect] walks @odata.id links breadth-first from the service root
// and records every resource it can read. Failed reads are kept as
// error strings rather than aborting the walk, since BMCs routinely
// return 404 or 500 for links they advertise.
//
// Snapshots are stored in a small container:
//
//	magic "BMCSNAP" | version (1 byte) | compression tag (1 byte)
//	| uncompressed size (uint64, big endian) | BLAKE3 digest (32 bytes)
//	| payload
//
// The payload is the deterministic CBOR encoding of the [Snapshot],
// compressed with zstd (the default) or LZ4 block mode. The digest is
// keyed with [digest.Snapshot] over the uncompressed CBOR, so two
// snapshots of an unchanged BMC taken at the same instant have equal
// digests regardless of compression. [Decode] verifies the digest.
package snapshot
