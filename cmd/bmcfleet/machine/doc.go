// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package machine implements the "bmcfleet machine" subcommand group.
package machine
