// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package account implements the "bmcfleet account" subcommand group
// for the BMC's local account table: list, inspect, create, delete,
// and change passwords. Commands that change accounts log in as the
// admin standard user unless a login flag says otherwise, and may
// reach machines missing from the inventory through its default
// entry.
package account
