// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package license implements the "bmcfleet license" subcommand group
// for Dell iDRAC licenses.
package license
