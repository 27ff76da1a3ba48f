// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package resource implements the "bmcfleet resource" subcommand
// group: raw Redfish reads and resource-tree snapshots for diagnosing
// BMCs that behave unexpectedly.
//
// Snapshots written by "resource dump" are compressed CBOR containers
// (see lib/snapshot). "resource show" reads them back offline, so a
// tree captured in the lab can be inspected elsewhere.
package resource
