// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for bmcfleet.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a params struct whose tagged fields
// become pflag flags (see [BindFlags]), and a Run function. Commands
// are assembled into a tree in cmd/bmcfleet/commands and dispatched
// via [Command.Execute], which handles flag parsing, subcommand
// routing, help output with examples, and typo suggestions for
// unknown commands and flags (edit distance at most 3).
//
// Commands that reach BMCs embed [Session] in their params. It carries
// the --config and --identity flags and the login flags
// (--username/--password, --use-default-creds, --as-admin, --as-root,
// --as-mgmt). [Session.Open] loads the configuration and inventory and
// resolves machine names into fleet targets.
//
// Errors returned from Run are categorized with [ToolError] so main
// can choose an exit code; [ExitError] sets a code without an extra
// message once a command has already printed its own report.
package cli
