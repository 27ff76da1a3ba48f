// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers: [Fatal] for
// errors before the structured logger exists, and [Exit] to turn a
// command's returned error into the process exit code. These are the
// only places outside the CLI that write raw text to stderr.
package process
