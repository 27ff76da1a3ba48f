// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package power implements the "bmcfleet power" subcommand group:
// read and change the host power state of one or more machines through
// their BMCs. Every change is a no-op on a machine already in the
// requested state.
package power
